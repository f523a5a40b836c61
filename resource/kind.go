// Package resource implements the Resource Factory and Instance Creators:
// wrapping server responses (or locally-originated fields) into
// ResourceInstances whose operation methods are pre-bound to the
// instance's identity.
package resource

// Kind is one of the server's managed entity types. Only these kinds
// participate in event scoping and instance creation.
type Kind string

const (
	KindBridge        Kind = "Bridge"
	KindChannel       Kind = "Channel"
	KindPlayback      Kind = "Playback"
	KindLiveRecording Kind = "LiveRecording"
	KindMailbox       Kind = "Mailbox"
	KindDeviceState   Kind = "DeviceState"
	KindEndpoint      Kind = "Endpoint"
	KindSound         Kind = "Sound"
	KindApplication   Kind = "Application"
)

// KnownKinds is the closed set of resource kinds.
var KnownKinds = [...]Kind{
	KindBridge, KindChannel, KindPlayback, KindLiveRecording, KindMailbox,
	KindDeviceState, KindEndpoint, KindSound, KindApplication,
}

// identityField is the field name that uniquely identifies an instance of
// kind.
var identityField = map[Kind]string{
	KindBridge:        "id",
	KindChannel:       "id",
	KindPlayback:      "id",
	KindLiveRecording: "name",
	KindMailbox:       "name",
	KindDeviceState:   "name",
	KindEndpoint:      "name",
	KindSound:         "name",
	KindApplication:   "name",
}

// resourceNamespace is the first path segment / Catalog resource name
// that owns kind's operations.
var resourceNamespace = map[Kind]string{
	KindBridge:        "bridges",
	KindChannel:       "channels",
	KindPlayback:      "playbacks",
	KindLiveRecording: "recordings",
	KindMailbox:       "mailboxes",
	KindDeviceState:   "deviceStates",
	KindEndpoint:      "endpoints",
	KindSound:         "sounds",
	KindApplication:   "applications",
}

// IdentityField returns the field name used to locate an instance of kind
// from an event payload or response body.
func IdentityField(k Kind) string { return identityField[k] }

// Namespace returns the Catalog resource name owning kind's operations.
func Namespace(k Kind) string { return resourceNamespace[k] }

// KindSet returns KnownKinds as a membership set keyed by kind name, for
// use by schema.PromotableField.
func KindSet() map[string]struct{} {
	set := make(map[string]struct{}, len(KnownKinds))
	for _, k := range KnownKinds {
		set[string(k)] = struct{}{}
	}
	return set
}

// Key identifies one resource instance: its kind plus its server-observed
// identity.
type Key struct {
	Kind     Kind
	Identity string
}
