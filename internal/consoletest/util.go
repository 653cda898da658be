package consoletest

import (
	"sort"

	"github.com/rmacdonaldsmith/lpar-forwarder/pkg/console"
)

// OSMessages builds an os-message notification for the partition uri
func OSMessages(uri string, messages ...console.OSMessage) *console.Notification {
	return &console.Notification{
		Kind:         console.KindOSMessage,
		ObjectURI:    uri,
		ObjectClass:  "partition",
		Destination:  "/topic/os",
		Subscription: "sub-1",
		Messages:     messages,
	}
}

func sortedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Verify that the fakes implement the console interfaces at compile time
var (
	_ console.Connector          = (*Console)(nil)
	_ console.Session            = (*Session)(nil)
	_ console.NotificationStream = (*Stream)(nil)
)
