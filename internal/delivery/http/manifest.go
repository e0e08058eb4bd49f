package http

const (
	AddonID      = "com.github.anhkind"
	AddonVersion = "1.0.0"
	AddonName    = "Shared Debrid Notifier"

	streamName        = "Shared Account"
	safeDescription   = "Safe and ready to use"
	dangerDescription = "DANGER! Being used"
	safeYtID          = "dQw4w9WgXcQ"
	dangerYtID        = "abm8QCh7pBg"
)

type Manifest struct {
	ID            string        `json:"id"`
	Version       string        `json:"version"`
	Name          string        `json:"name"`
	Description   string        `json:"description"`
	Logo          string        `json:"logo"`
	Resources     []string      `json:"resources"`
	Catalogs      []string      `json:"catalogs"`
	Types         []string      `json:"types"`
	BehaviorHints BehaviorHints `json:"behaviorHints"`
}

type BehaviorHints struct {
	Configurable          bool `json:"configurable"`
	ConfigurationRequired bool `json:"configurationRequired"`
}

type Stream struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	YtID        string `json:"ytId"`
}

type StreamResponse struct {
	Streams []Stream `json:"streams"`
}

func newManifest() Manifest {
	return Manifest{
		ID:          AddonID,
		Version:     AddonVersion,
		Name:        AddonName,
		Description: "Notify current user if the shared debrid is being used by others",
		Logo:        "https://raw.githubusercontent.com/anhkind/stremio-shared-debrid/master/images/logo-colored-256.png",
		Resources:   []string{"stream"},
		Catalogs:    []string{},
		Types:       []string{"movie", "series", "channel", "tv"},
		BehaviorHints: BehaviorHints{
			Configurable:          true,
			ConfigurationRequired: false,
		},
	}
}

func safeStream() Stream {
	return Stream{Name: streamName, Description: safeDescription, YtID: safeYtID}
}

func dangerStream(holder string) Stream {
	description := dangerDescription
	if holder != "" {
		description += " by " + holder
	}
	return Stream{Name: streamName, Description: description, YtID: dangerYtID}
}
