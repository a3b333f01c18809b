/*
Package media implements the media service of section 4.5: ingest, list,
update, soft-delete, restore, and purge of library assets, plus the
thumbnail/waveform/duration derivatives generated at ingest.

Ingest and the trash-state transitions (Delete/Restore) push every
filesystem side effect onto an undoStack as it happens; a failure partway
through unwinds the stack in reverse before the error is returned, leaving
the filesystem as close to its prior state as a best-effort compensating
move can manage.

FFProbe and Derivatives are the default Prober/Thumbnailer implementations,
shelling out to ffprobe/ffmpeg/audiowaveform respectively. Tests substitute
fakes so they do not depend on those binaries being on PATH.
*/
package media
