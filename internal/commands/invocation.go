// Package commands routes slash-command invocations through throttling,
// authorization and the audit trail, and implements every command handler.
package commands

import (
	"github.com/parsascontentcorner/clanwarden/internal/models"
)

// Invocation is one slash command call, decoded from the platform event
type Invocation struct {
	RequestID       string
	GuildID         models.Snowflake
	GuildName       string
	ChannelID       models.Snowflake
	ChannelName     string
	ActorID         models.Snowflake
	ActorName       string
	IsAdministrator bool
	RoleIDs         []models.Snowflake

	// Name is the top-level command, Sub the subcommand if any
	Name string
	Sub  string
	// Options holds string, int64, bool, models.Snowflake or Attachment values
	Options map[string]interface{}
}

// Attachment is an uploaded file option
type Attachment struct {
	Filename string
	URL      string
	Size     int
}

// Key is the route key: "name" or "name sub"
func (inv *Invocation) Key() string {
	if inv.Sub == "" {
		return inv.Name
	}
	return inv.Name + " " + inv.Sub
}

// String returns a string option
func (inv *Invocation) String(name string) (string, bool) {
	v, ok := inv.Options[name].(string)
	return v, ok
}

// Int returns an integer option
func (inv *Invocation) Int(name string) (int64, bool) {
	v, ok := inv.Options[name].(int64)
	return v, ok
}

// Bool returns a boolean option
func (inv *Invocation) Bool(name string) (bool, bool) {
	v, ok := inv.Options[name].(bool)
	return v, ok
}

// Snowflake returns a user, role or channel option
func (inv *Invocation) Snowflake(name string) (models.Snowflake, bool) {
	v, ok := inv.Options[name].(models.Snowflake)
	return v, ok
}

// Attachment returns a file option
func (inv *Invocation) Attachment(name string) (Attachment, bool) {
	v, ok := inv.Options[name].(Attachment)
	return v, ok
}

// Response is the ephemeral reply to an invocation
type Response struct {
	Content string
	Embed   *Embed
	File    *File
}

// File is a document attached to a Response
type File struct {
	Name        string
	ContentType string
	Data        []byte
}
