package console

// KindOSMessage is the notification kind carrying OS console messages
const KindOSMessage = "os-message"

// Complex is a managed compute complex (CPC)
type Complex struct {
	URI        string
	Name       string
	DPMEnabled bool
}

// Partition identifies one LPAR. URI is unique across the console.
type Partition struct {
	URI         string
	Name        string
	ComplexName string
	ComplexURI  string
}

// OSMessage is a single console line of a partition
type OSMessage struct {
	SequenceNumber int64
	Text           string
}

// Notification is one message received on a notification stream
type Notification struct {
	// Kind is the notification type, KindOSMessage for console output
	Kind string

	// ObjectURI identifies the partition that emitted the notification
	ObjectURI string

	ObjectClass  string
	ObjectName   string
	Destination  string
	Subscription string

	// Messages is empty unless Kind is KindOSMessage
	Messages []OSMessage
}
