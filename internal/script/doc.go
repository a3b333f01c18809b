/*
Package script is the external Cue-script reader/writer and Script parser
named in section 4.6: XMLReaderWriter reads/writes a project's script.xml,
and MediaReferences extracts the unix_name → cue id map the project
service needs to materialize ProjectMedia edges.
*/
package script
