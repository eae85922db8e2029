package core

import (
	"fmt"

	"github.com/StudioSol/set"
)

// Recipient is a registered chat identity eligible to receive the digest
// and use bot commands. The ID is the platform chat identifier.
type Recipient struct {
	ID   string `mapstructure:"id" yaml:"id"`
	Name string `mapstructure:"name" yaml:"name"`
}

// Directory is the closed set of recipients, loaded once at startup and
// immutable afterwards, so it is safe for concurrent reads.
type Directory struct {
	recipients []Recipient
	ids        *set.LinkedHashSetString
}

// NewDirectory validates the recipient list: ids must be non-empty and
// unique within the directory.
func NewDirectory(recipients []Recipient) (*Directory, error) {
	ids := set.NewLinkedHashSetString()

	for _, r := range recipients {
		if r.ID == "" {
			return nil, fmt.Errorf("recipient %q has an empty id", r.Name)
		}
		if ids.InArray(r.ID) {
			return nil, fmt.Errorf("duplicated recipient id: %s", r.ID)
		}
		ids.Add(r.ID)
	}

	return &Directory{
		recipients: append([]Recipient(nil), recipients...),
		ids:        ids,
	}, nil
}

// All returns the recipients in registration order.
func (d *Directory) All() []Recipient {
	return append([]Recipient(nil), d.recipients...)
}

// Contains reports whether the given chat id is registered.
func (d *Directory) Contains(id string) bool {
	return d.ids.InArray(id)
}

// Get returns the recipient registered under the given chat id.
func (d *Directory) Get(id string) (Recipient, bool) {
	for _, r := range d.recipients {
		if r.ID == id {
			return r, true
		}
	}
	return Recipient{}, false
}

// Len returns the number of registered recipients.
func (d *Directory) Len() int {
	return len(d.recipients)
}
