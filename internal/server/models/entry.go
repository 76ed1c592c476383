// Package models defines server-side data models persisted in the metadata store.
package models

// Entry is one diary record. EntryID and UserID are write-once; the row is
// never updated in place, only created and deleted.
//
// Images and Videos hold object-store keys of the form "<userId>/<name>".
type Entry struct {
	EntryID string   `json:"entryId" dynamodbav:"entryId"`
	UserID  string   `json:"userId" dynamodbav:"userId"`
	Date    string   `json:"date" dynamodbav:"date"`
	Text    string   `json:"text" dynamodbav:"text"`
	Images  []string `json:"images" dynamodbav:"images"`
	Videos  []string `json:"videos" dynamodbav:"videos"`
}

// Normalize replaces nil attachment lists with empty ones so that records
// always serialize as arrays.
func (e *Entry) Normalize() *Entry {
	if e.Images == nil {
		e.Images = []string{}
	}
	if e.Videos == nil {
		e.Videos = []string{}
	}
	return e
}

// AttachmentKeys returns images followed by videos.
func (e *Entry) AttachmentKeys() []string {
	keys := make([]string, 0, len(e.Images)+len(e.Videos))
	keys = append(keys, e.Images...)
	return append(keys, e.Videos...)
}
