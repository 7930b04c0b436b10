// Package state implements persistence for confirmed presence records.
//
// Two Repository implementations are provided: FileRepository stores every
// record in one JSON document, SQLiteRepository keeps them in the
// presence_state table. Both guarantee that updated_at strictly increases on
// every write of a subject.
package state
