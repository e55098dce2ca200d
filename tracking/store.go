package tracking

// PositionWindowSize bounds each track's position history. The window keeps
// speed estimation a sliding-window computation and caps memory per track.
const PositionWindowSize = 30

// Position is a sampled track center at a specific frame.
type Position struct {
	X, Y       float64
	FrameIndex int
}

type track struct {
	classLabel string
	positions  []Position
	recorded   map[string]struct{}
}

// Store holds per-track rolling state for the duration of one processing
// run. It is mutated only by the sequential frame loop (single writer), so
// no locking is needed; downstream tasks never see it, only immutable
// snapshots taken by the loop. Drop the whole Store when the run ends.
type Store struct {
	tracks map[int]*track
}

// NewStore allocates the per-run track state.
func NewStore() *Store {
	return &Store{tracks: make(map[int]*track)}
}

// Update appends a position to the track's bounded window, evicting the
// oldest entry past capacity.
func (s *Store) Update(trackID int, classLabel string, pos Position) {
	t := s.tracks[trackID]
	if t == nil {
		t = &track{recorded: make(map[string]struct{})}
		s.tracks[trackID] = t
	}
	t.classLabel = classLabel
	t.positions = append(t.positions, pos)
	if len(t.positions) > PositionWindowSize {
		t.positions = t.positions[len(t.positions)-PositionWindowSize:]
	}
}

// Window returns a copy of the track's position window, oldest first.
func (s *Store) Window(trackID int) []Position {
	t := s.tracks[trackID]
	if t == nil {
		return nil
	}
	out := make([]Position, len(t.positions))
	copy(out, t.positions)
	return out
}

// ClassLabel returns the most recently observed class for the track.
func (s *Store) ClassLabel(trackID int) string {
	if t := s.tracks[trackID]; t != nil {
		return t.classLabel
	}
	return ""
}

// HasRecorded reports whether a violation type was already recorded for the
// track in this run. Together with MarkRecorded it is the sole dedup gate
// and must be consulted synchronously by the frame loop before a violation
// is persisted.
func (s *Store) HasRecorded(trackID int, violationType string) bool {
	t := s.tracks[trackID]
	if t == nil {
		return false
	}
	_, ok := t.recorded[violationType]
	return ok
}

// MarkRecorded records that a violation type fired for the track.
func (s *Store) MarkRecorded(trackID int, violationType string) {
	t := s.tracks[trackID]
	if t == nil {
		t = &track{recorded: make(map[string]struct{})}
		s.tracks[trackID] = t
	}
	t.recorded[violationType] = struct{}{}
}

// Len returns the number of tracks currently held.
func (s *Store) Len() int {
	return len(s.tracks)
}
