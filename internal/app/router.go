package app

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/elchatico/dualview/internal/core"
	"github.com/elchatico/dualview/internal/domain"
)

// Router classifies inbound negotiated tracks into the camera and screen
// buckets and maintains the remote bucket state.
//
// The heuristic: an audio track always belongs to the camera; a video
// track belongs to the camera when its parent stream also carries audio,
// otherwise it is a screen share. This relies on screen captures being
// negotiated video-only, which the capture side guarantees. A camera
// stream negotiated without audio will land in the screen bucket; known
// limitation, kept for wire compatibility with existing peers.
type Router struct {
	mu      sync.Mutex
	log     zerolog.Logger
	camera  []core.RemoteTrack
	screen  []core.RemoteTrack
	streams map[string]*streamSnapshot
}

// streamSnapshot is what the router has seen of one parent stream so far.
type streamSnapshot struct {
	audio int
	video int
}

func NewRouter(log zerolog.Logger) *Router {
	return &Router{
		log:     log,
		streams: make(map[string]*streamSnapshot),
	}
}

// Classify routes one inbound track and appends it to the chosen remote
// bucket. Idempotent by track identity: duplicate delivery leaves the
// bucket unchanged.
func (r *Router) Classify(t core.RemoteTrack) domain.BucketKey {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Duplicate delivery: the track keeps its original bucket even if the
	// stream snapshot has grown since.
	if containsTrack(r.camera, t.ID()) {
		return domain.BucketCamera
	}
	if containsTrack(r.screen, t.ID()) {
		return domain.BucketScreen
	}

	snap := r.streams[t.StreamID()]
	if snap == nil {
		snap = &streamSnapshot{}
		r.streams[t.StreamID()] = snap
	}
	switch t.Kind() {
	case core.TrackAudio:
		snap.audio++
	case core.TrackVideo:
		snap.video++
	}

	key := domain.BucketScreen
	if t.Kind() == core.TrackAudio || (snap.audio > 0 && snap.video > 0) {
		key = domain.BucketCamera
	}

	if key == domain.BucketCamera {
		r.camera = append(r.camera, t)
	} else {
		r.screen = append(r.screen, t)
	}

	r.log.Info().
		Str("module", "router").
		Str("track_id", t.ID()).
		Str("kind", string(t.Kind())).
		Str("stream_id", t.StreamID()).
		Str("bucket", string(key)).
		Msg("classified inbound track")
	return key
}

// Bucket returns a copy of one remote bucket in arrival order. An empty
// bucket is absent media, not an error.
func (r *Router) Bucket(key domain.BucketKey) []core.RemoteTrack {
	r.mu.Lock()
	defer r.mu.Unlock()
	var src []core.RemoteTrack
	if key == domain.BucketCamera {
		src = r.camera
	} else {
		src = r.screen
	}
	out := make([]core.RemoteTrack, len(src))
	copy(out, src)
	return out
}

// Reset drops all remote bucket state.
func (r *Router) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.camera = nil
	r.screen = nil
	r.streams = make(map[string]*streamSnapshot)
}

func containsTrack(bucket []core.RemoteTrack, id string) bool {
	for _, t := range bucket {
		if t.ID() == id {
			return true
		}
	}
	return false
}

