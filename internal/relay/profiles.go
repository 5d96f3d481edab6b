package relay

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/nbd-wtf/go-nostr"

	"zapstream/internal/cache"
	"zapstream/internal/models"
)

const (
	profileFlushDelay   = 300 * time.Millisecond
	profileFetchTimeout = 15 * time.Second
)

// profileContent is the kind-0 metadata payload. Only the display fields
// matter here.
type profileContent struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	Picture     string `json:"picture"`
}

// ProfileResolver fetches kind-0 payer metadata on demand. Requests arriving
// within the flush window are batched into a single authors filter, so a
// backlog burst of new payers costs one subscription, not one per payer.
type ProfileResolver struct {
	pool   *Pool
	health *HealthTracker
	sink   Sink
	cache  *cache.ProfileCache
	relays []string

	mu      sync.Mutex
	pending map[string]uint64 // pubkey → generation captured at request time
	flushAt *time.Timer

	ctx    context.Context
	cancel context.CancelFunc
}

// NewProfileResolver creates a ProfileResolver backed by the given cache.
func NewProfileResolver(pool *Pool, health *HealthTracker, sink Sink, profiles *cache.ProfileCache, relays []string) *ProfileResolver {
	ctx, cancel := context.WithCancel(context.Background())
	return &ProfileResolver{
		pool:    pool,
		health:  health,
		sink:    sink,
		cache:   profiles,
		relays:  relays,
		pending: make(map[string]uint64),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Stop cancels any in-flight fetches.
func (r *ProfileResolver) Stop() {
	r.cancel()
}

// Request asks for a payer's metadata. Cached profiles resolve immediately;
// misses are queued for the next batched fetch. Never blocks.
func (r *ProfileResolver) Request(pubkey string, generation uint64) {
	if profile, ok := r.cache.Get(pubkey); ok {
		r.sink.SubmitProfile(pubkey, profile, generation)
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.pending[pubkey] = generation
	if r.flushAt == nil {
		r.flushAt = time.AfterFunc(profileFlushDelay, r.flush)
	}
}

func (r *ProfileResolver) flush() {
	r.mu.Lock()
	batch := r.pending
	r.pending = make(map[string]uint64)
	r.flushAt = nil
	r.mu.Unlock()

	if len(batch) == 0 {
		return
	}
	go r.fetch(batch)
}

// fetch pulls the newest kind-0 event per requested pubkey and submits the
// result. Payers with no profile on any relay resolve with an empty profile
// so their pending notifications still fire with the placeholder identity.
func (r *ProfileResolver) fetch(batch map[string]uint64) {
	authors := make([]string, 0, len(batch))
	for pubkey := range batch {
		authors = append(authors, pubkey)
	}

	filter := nostr.Filter{
		Kinds:   []int{nostr.KindProfileMetadata},
		Authors: authors,
	}

	ctx, cancel := context.WithTimeout(r.ctx, profileFetchTimeout)
	defer cancel()

	newest := make(map[string]*nostr.Event, len(batch))
	relays := r.health.FilterBanned(r.relays)
	if len(relays) == 0 {
		relays = r.relays
	}

	for ie := range r.pool.Get().SubManyEose(ctx, relays, nostr.Filters{filter}) {
		if ie.Event == nil {
			continue
		}
		if ie.Relay != nil {
			r.pool.Track(ie.Relay.URL)
		}
		if prev, ok := newest[ie.Event.PubKey]; !ok || ie.Event.CreatedAt > prev.CreatedAt {
			newest[ie.Event.PubKey] = ie.Event
		}
	}

	for pubkey, generation := range batch {
		profile := models.Profile{}
		if ev, ok := newest[pubkey]; ok {
			profile = parseProfile(ev)
			r.cache.Set(pubkey, profile)
		}
		r.sink.SubmitProfile(pubkey, profile, generation)
	}
	log.Printf("[RELAY] Resolved %d/%d profiles", len(newest), len(batch))
}

// parseProfile decodes kind-0 content, preferring display_name over name.
// Unparseable content yields an empty profile; the zap itself is unaffected.
func parseProfile(ev *nostr.Event) models.Profile {
	var content profileContent
	if err := json.Unmarshal([]byte(ev.Content), &content); err != nil {
		log.Printf("[RELAY] Bad profile content for %s: %v", ev.PubKey, err)
		return models.Profile{}
	}

	name := content.DisplayName
	if name == "" {
		name = content.Name
	}
	return models.Profile{
		Name:    name,
		Picture: content.Picture,
	}
}
