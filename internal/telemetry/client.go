// Package telemetry provides anonymous usage tracking via PostHog.
package telemetry

import (
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/posthog/posthog-go"
)

// PostHogAPIKey is set at compile time via ldflags.
var PostHogAPIKey string

// EnvTrackingEnabled disables tracking when set to "false".
const EnvTrackingEnabled = "SPELLBOOK_TELEMETRY_TRACKING_ENABLED"

// TrackingIDProvider supplies the persistent anonymous id.
type TrackingIDProvider interface {
	GetOrCreateTrackingID() string
}

// Client interface for telemetry operations.
type Client interface {
	Track(event string, properties map[string]interface{})
	Close()
	GetTrackingID() string

	// App and CLI events
	TrackAppStarted(mode string, spellbookCount int)
	TrackCLICommandExecuted(commandName string, hasFlags bool, durationMs int64)
	TrackCLIError(commandName, errorType string)

	// Catalog events
	TrackCatalogLoaded(source string, spellCount int, durationMs int64)
	TrackSpellSearched(queryLength, filterCount, resultCount int, surface string)
	TrackSpellViewed(spellID, surface string)
	TrackSpellCopied(spellID string)

	// Spellbook events
	TrackSpellbookCreated(pendingSpells int, hasProfile bool)
	TrackSpellbookCopied(spellCount int, outcome string)
	TrackSpellbookDeleted()
	TrackSpellsAdded(requested, added int)

	// Backup events
	TrackBackupExported(spellbookCount int, sink string)
	TrackBackupImported(imported, skipped, failed int)

	// MCP events
	TrackMCPToolCalled(toolName string, durationMs int64, success bool)
}

// posthogClient wraps the PostHog SDK.
type posthogClient struct {
	client    posthog.Client
	sessionID string
	mu        sync.Mutex
}

// noopClient does nothing (for disabled telemetry).
type noopClient struct{}

// IsEnabled returns true if telemetry is enabled.
// Tracking is opt-out, and only possible in builds that carry an API key.
func IsEnabled() bool {
	return os.Getenv(EnvTrackingEnabled) != "false" && PostHogAPIKey != ""
}

// Noop returns a client that discards every event.
func Noop() Client {
	return &noopClient{}
}

// New creates a telemetry client whose distinct id comes from provider.
// If provider is nil, a new UUID is generated per session.
func New(provider TrackingIDProvider) Client {
	if !IsEnabled() {
		return &noopClient{}
	}

	client, err := posthog.NewWithConfig(PostHogAPIKey, posthog.Config{
		Endpoint:  "https://us.i.posthog.com",
		BatchSize: 250,
		Interval:  5 * time.Second,
	})
	if err != nil {
		return &noopClient{}
	}

	var sessionID string
	if provider != nil {
		sessionID = provider.GetOrCreateTrackingID()
	}
	if sessionID == "" {
		sessionID = uuid.New().String()
	}

	return &posthogClient{
		client:    client,
		sessionID: sessionID,
	}
}

// Track sends an event to PostHog.
func (c *posthogClient) Track(event string, properties map[string]interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()

	props := posthog.NewProperties()
	props.Set("$process_person_profile", false)
	props.Set("$geoip_disable", true)

	for k, v := range properties {
		props.Set(k, v)
	}

	_ = c.client.Enqueue(posthog.Capture{
		DistinctId: c.sessionID,
		Event:      event,
		Properties: props,
	})
}

// Close flushes remaining events and closes the client.
func (c *posthogClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.client.Close()
}

// GetTrackingID returns the anonymous tracking ID for the session.
func (c *posthogClient) GetTrackingID() string {
	return c.sessionID
}

func (c *noopClient) Track(event string, properties map[string]interface{}) {}

func (c *noopClient) Close() {}

func (c *noopClient) GetTrackingID() string {
	return ""
}
