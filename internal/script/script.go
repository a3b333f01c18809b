// Package script implements the cue-script boundary: reading and writing
// a project's script.xml, and extracting the media references it
// contains. No XML library exists anywhere in the example corpus for this
// narrow a need, so this package uses encoding/xml directly — the one
// stdlib-only component in the domain stack.
package script

import "encoding/xml"

// Document is a project's cue script: a tree of cues, some of which
// reference a media asset by its unix_name. Besides round-tripping
// through script.xml, this shape is also the body of a project_save
// message's {"CuemsScript": {...}} payload, hence the json tags.
type Document struct {
	XMLName     xml.Name `xml:"CuemsScript" json:"-"`
	UUID        string   `xml:"uuid,attr,omitempty" json:"uuid,omitempty"`
	Name        string   `xml:"name,attr" json:"name"`
	Description string   `xml:"description,attr,omitempty" json:"description,omitempty"`
	Created     string   `xml:"created,attr,omitempty" json:"created,omitempty"`
	Modified    string   `xml:"modified,attr,omitempty" json:"modified,omitempty"`
	Cues        []Cue    `xml:"Cues>Cue" json:"cues,omitempty"`
}

// Cue is one node in the cue tree. A cue with a non-empty Media attribute
// references that media asset's unix_name; cues without one are groups or
// control cues and may themselves contain child cues.
type Cue struct {
	ID    string `xml:"id,attr" json:"id"`
	Type  string `xml:"type,attr" json:"type"`
	Media string `xml:"media,attr,omitempty" json:"media,omitempty"`
	Cues  []Cue  `xml:"Cues>Cue,omitempty" json:"cues,omitempty"`
}

// MediaReferences walks the cue tree and returns every referenced
// unix_name mapped to the id of the (first) cue that references it.
func MediaReferences(doc *Document) map[string]string {
	refs := make(map[string]string)
	var walk func([]Cue)
	walk = func(cues []Cue) {
		for _, c := range cues {
			if c.Media != "" {
				if _, exists := refs[c.Media]; !exists {
					refs[c.Media] = c.ID
				}
			}
			walk(c.Cues)
		}
	}
	walk(doc.Cues)
	return refs
}
