/*
Package project implements the project service of section 4.6. A project
is a directory under projects/<unix_name>/ containing exactly one
script.xml; the service keeps each project's ProjectMedia edges in sync
with that script by diffing the media references script.MediaReferences
extracts against the edges already on file, adding and removing only the
symmetric difference.

New and Duplicate remove the directory they created on any later failure.
Update leaves the directory where it is and surfaces the error; Delete and
Restore move the directory back when the row update after the move fails.
*/
package project
