package engine

import "github.com/google/uuid"

// HatType names which kind of top-level hat block a Script was compiled
// from, mirroring the hat categories a compiler would emit scripts under.
type HatType int

const (
	// GreenFlag scripts start when the project's "when green flag clicked"
	// event fires.
	GreenFlag HatType = iota
	// BroadcastReceived scripts start when a matching Broadcast fires.
	BroadcastReceived
	// BackdropChanged scripts start when the stage's backdrop changes to a
	// matching name.
	BackdropChanged
	// CloneInit scripts start once, immediately after a clone is created.
	CloneInit
	// KeyPressed scripts start when a matching key transitions to pressed.
	KeyPressed
)

// hatRestartsExisting reports whether starting this hat type should restart
// an already-running thread for the same (target, script) pair rather than
// leaving it alone when one is still active. Only GreenFlag restarts;
// everything else defers to any thread already in flight, matching
// scratch-vm's per-hat-type restart table.
func hatRestartsExisting(h HatType) bool { return h == GreenFlag }

// Broadcast is a named event a project can raise. Each Broadcast carries a
// uuid.UUID assigned at creation, which FindBroadcastByID looks up; hat
// dispatch (Engine.Broadcast) and Engine.BroadcastRunning match on Name.
type Broadcast struct {
	ID   uuid.UUID
	Name string
	// IsBackdrop marks a broadcast synthesized for a backdrop-changed event
	// rather than a project-declared "when I receive" message.
	IsBackdrop bool
}

// NewBroadcast creates a Broadcast with a fresh identity.
func NewBroadcast(name string) *Broadcast {
	return &Broadcast{ID: uuid.New(), Name: name}
}
