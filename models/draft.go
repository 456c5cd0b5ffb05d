package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const placeholderPrefix = "temp-"

// ModuleID discriminates between a server-confirmed module id and a local
// placeholder minted before the backend create call. Business code branches
// on the variant instead of sniffing string prefixes; the wire format keeps
// the legacy "temp-<timestamp>" form for compatibility with stored drafts.
type ModuleID struct {
	value       string
	placeholder bool
}

func PersistedID(id string) ModuleID {
	return ModuleID{value: id}
}

// NewPlaceholderID mints a fresh local id for a not-yet-created module.
func NewPlaceholderID() ModuleID {
	return ModuleID{
		value:       fmt.Sprintf("%s%d", placeholderPrefix, time.Now().UnixNano()),
		placeholder: true,
	}
}

// ParseModuleID recovers the variant from its wire form.
func ParseModuleID(s string) ModuleID {
	if strings.HasPrefix(s, placeholderPrefix) {
		return ModuleID{value: s, placeholder: true}
	}
	return ModuleID{value: s}
}

func (id ModuleID) IsPlaceholder() bool { return id.placeholder }
func (id ModuleID) IsZero() bool        { return id.value == "" }
func (id ModuleID) String() string      { return id.value }

func (id ModuleID) MarshalJSON() ([]byte, error) {
	return json.Marshal(id.value)
}

func (id *ModuleID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*id = ParseModuleID(s)
	return nil
}

// DraftModule is a module held in the pending draft. Attachment URLs are
// already uploaded to blob storage even in draft mode; only the backend
// entity is deferred.
type DraftModule struct {
	ID     ModuleID     `json:"id"`
	Fields ModuleFields `json:"fields"`
}

// PendingDraft is the single-slot wizard draft. SubjectID is nil until the
// backend confirms a subject create; a confirmed id on an unfinished draft
// marks a server-side subject that must be deleted if the wizard is cancelled.
type PendingDraft struct {
	SubjectID     *string       `json:"id"`
	Nombre        string        `json:"nombre"`
	IDCursos      []string      `json:"id_cursos"`
	Modules       []DraftModule `json:"modulos"`
	ManageModules bool          `json:"manage_modules"`
}

// ModuleByID returns the index of the draft module with the given id, or -1.
func (d *PendingDraft) ModuleByID(id ModuleID) int {
	for i, m := range d.Modules {
		if m.ID == id {
			return i
		}
	}
	return -1
}
