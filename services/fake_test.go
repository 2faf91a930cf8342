package services

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/Dosada05/ranked-portal/models"
	"github.com/Dosada05/ranked-portal/notify"
	"github.com/Dosada05/ranked-portal/repositories"
	"github.com/Dosada05/ranked-portal/storage"
)

// fakeExec stands in for *sql.Tx; the fake repositories never touch it.
type fakeExec struct{}

func (fakeExec) ExecContext(context.Context, string, ...interface{}) (sql.Result, error) {
	return nil, nil
}

func (fakeExec) QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error) {
	return nil, nil
}

func (fakeExec) QueryRowContext(context.Context, string, ...interface{}) *sql.Row { return nil }

// fakeStore is an in-memory database. Transactions are serialized by txMu
// and rolled back from a snapshot; mu guards individual reads and writes.
type fakeStore struct {
	txMu sync.Mutex
	mu   sync.Mutex

	nextID       int
	users        map[int]models.User
	tournaments  map[int]models.Tournament
	participants map[int]models.Participant
	matches      map[int]models.TournamentMatch
	disputes     map[int]models.Dispute
	ratings      map[int]models.PlayerRating
	changes      []models.RankingChange
	challenges   map[int]models.Challenge

	// beforeMatchUpdate lets a test corrupt or veto a write.
	beforeMatchUpdate func(m *models.TournamentMatch) error
	// resolveErr fails the next dispute resolution write.
	resolveErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		nextID:       1000,
		users:        map[int]models.User{},
		tournaments:  map[int]models.Tournament{},
		participants: map[int]models.Participant{},
		matches:      map[int]models.TournamentMatch{},
		disputes:     map[int]models.Dispute{},
		ratings:      map[int]models.PlayerRating{},
		challenges:   map[int]models.Challenge{},
	}
}

func (s *fakeStore) id() int {
	s.nextID++
	return s.nextID
}

type fakeSnapshot struct {
	nextID       int
	tournaments  map[int]models.Tournament
	participants map[int]models.Participant
	matches      map[int]models.TournamentMatch
	disputes     map[int]models.Dispute
	ratings      map[int]models.PlayerRating
	changes      []models.RankingChange
	challenges   map[int]models.Challenge
}

func copyMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (s *fakeStore) snapshot() fakeSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fakeSnapshot{
		nextID:       s.nextID,
		tournaments:  copyMap(s.tournaments),
		participants: copyMap(s.participants),
		matches:      copyMap(s.matches),
		disputes:     copyMap(s.disputes),
		ratings:      copyMap(s.ratings),
		changes:      append([]models.RankingChange(nil), s.changes...),
		challenges:   copyMap(s.challenges),
	}
}

func (s *fakeStore) restore(snap fakeSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID = snap.nextID
	s.tournaments = snap.tournaments
	s.participants = snap.participants
	s.matches = snap.matches
	s.disputes = snap.disputes
	s.ratings = snap.ratings
	s.changes = snap.changes
	s.challenges = snap.challenges
}

func (s *fakeStore) WithinTx(ctx context.Context, fn func(ctx context.Context, exec repositories.SQLExecutor) error) (err error) {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	snap := s.snapshot()
	defer func() {
		if p := recover(); p != nil {
			s.restore(snap)
			panic(p)
		}
		if err != nil {
			s.restore(snap)
		}
	}()
	return fn(ctx, fakeExec{})
}

// --- seeding helpers ---

func (s *fakeStore) addUser(id int, role models.UserRole, public bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[id] = models.User{ID: id, Nickname: "player" + strconv.Itoa(id), Role: role, RatingHistoryPublic: public}
}

func (s *fakeStore) match(id int) models.TournamentMatch {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.matches[id]
}

func (s *fakeStore) tournament(id int) models.Tournament {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tournaments[id]
}

func (s *fakeStore) rating(userID int) models.PlayerRating {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ratings[userID]
}

func (s *fakeStore) changeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.changes)
}

func (s *fakeStore) disputeList() []models.Dispute {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Dispute, 0, len(s.disputes))
	for _, d := range s.disputes {
		out = append(out, d)
	}
	return out
}

// --- repositories ---

type fakeMatchRepo struct{ s *fakeStore }

func (r fakeMatchRepo) Create(_ context.Context, _ repositories.SQLExecutor, m *models.TournamentMatch) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, other := range r.s.matches {
		if other.TournamentID == m.TournamentID && other.Round == m.Round && other.MatchNumber == m.MatchNumber {
			return repositories.ErrMatchNumberConflict
		}
	}
	m.ID = r.s.id()
	m.Version = 1
	m.CreatedAt = time.Now()
	m.UpdatedAt = m.CreatedAt
	r.s.matches[m.ID] = *m.Clone()
	return nil
}

func (r fakeMatchRepo) GetByID(_ context.Context, _ repositories.SQLExecutor, id int) (*models.TournamentMatch, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m, ok := r.s.matches[id]
	if !ok {
		return nil, repositories.ErrMatchNotFound
	}
	return m.Clone(), nil
}

func (r fakeMatchRepo) GetForUpdate(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.TournamentMatch, error) {
	return r.GetByID(ctx, exec, id)
}

func (r fakeMatchRepo) ListByTournament(_ context.Context, _ repositories.SQLExecutor, tournamentID int) ([]*models.TournamentMatch, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*models.TournamentMatch, 0)
	for _, m := range r.s.matches {
		if m.TournamentID == tournamentID {
			out = append(out, m.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Round != out[j].Round {
			return out[i].Round < out[j].Round
		}
		return out[i].MatchNumber < out[j].MatchNumber
	})
	return out, nil
}

func (r fakeMatchRepo) Update(_ context.Context, _ repositories.SQLExecutor, m *models.TournamentMatch) error {
	if hook := r.s.beforeMatchUpdate; hook != nil {
		if err := hook(m); err != nil {
			return err
		}
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.matches[m.ID]
	if !ok {
		return repositories.ErrMatchNotFound
	}
	if cur.Version != m.Version {
		return repositories.ErrMatchVersionConflict
	}
	m.Version++
	m.UpdatedAt = time.Now()
	r.s.matches[m.ID] = *m.Clone()
	return nil
}

type fakeTournamentRepo struct{ s *fakeStore }

func (r fakeTournamentRepo) Create(_ context.Context, _ repositories.SQLExecutor, t *models.Tournament) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[t.OrganizerID]; !ok {
		return repositories.ErrTournamentInvalidOrg
	}
	for _, other := range r.s.tournaments {
		if other.OrganizerID == t.OrganizerID && other.Name == t.Name {
			return repositories.ErrTournamentNameConflict
		}
	}
	t.ID = r.s.id()
	t.CreatedAt = time.Now()
	r.s.tournaments[t.ID] = *t
	return nil
}

func (r fakeTournamentRepo) GetByID(_ context.Context, _ repositories.SQLExecutor, id int) (*models.Tournament, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.tournaments[id]
	if !ok {
		return nil, repositories.ErrTournamentNotFound
	}
	return &t, nil
}

func (r fakeTournamentRepo) GetForUpdate(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Tournament, error) {
	return r.GetByID(ctx, exec, id)
}

func (r fakeTournamentRepo) modify(id int, fn func(t *models.Tournament)) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.tournaments[id]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	fn(&t)
	r.s.tournaments[id] = t
	return nil
}

func (r fakeTournamentRepo) UpdateStatus(_ context.Context, _ repositories.SQLExecutor, id int, status models.TournamentStatus) error {
	return r.modify(id, func(t *models.Tournament) { t.Status = status })
}

func (r fakeTournamentRepo) SetRoundCount(_ context.Context, _ repositories.SQLExecutor, id int, rounds int) error {
	return r.modify(id, func(t *models.Tournament) { t.RoundCount = rounds })
}

func (r fakeTournamentRepo) Complete(_ context.Context, _ repositories.SQLExecutor, id int, championParticipantID int, completedAt time.Time) error {
	return r.modify(id, func(t *models.Tournament) {
		champion, at := championParticipantID, completedAt
		t.Status = models.StatusCompleted
		t.ChampionParticipantID = &champion
		t.CompletedAt = &at
	})
}

type fakeParticipantRepo struct{ s *fakeStore }

func (r fakeParticipantRepo) Create(_ context.Context, _ repositories.SQLExecutor, p *models.Participant) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[p.UserID]; !ok {
		return repositories.ErrParticipantUserInvalid
	}
	for _, other := range r.s.participants {
		if other.TournamentID == p.TournamentID && other.UserID == p.UserID {
			return repositories.ErrParticipantConflict
		}
	}
	p.ID = r.s.id()
	p.CreatedAt = time.Now()
	r.s.participants[p.ID] = *p
	return nil
}

func (r fakeParticipantRepo) FindByID(_ context.Context, _ repositories.SQLExecutor, id int) (*models.Participant, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.participants[id]
	if !ok {
		return nil, repositories.ErrParticipantNotFound
	}
	return &p, nil
}

func (r fakeParticipantRepo) FindByUserAndTournament(_ context.Context, _ repositories.SQLExecutor, userID, tournamentID int) (*models.Participant, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, p := range r.s.participants {
		if p.UserID == userID && p.TournamentID == tournamentID {
			return &p, nil
		}
	}
	return nil, repositories.ErrParticipantNotFound
}

func (r fakeParticipantRepo) ListByTournament(_ context.Context, _ repositories.SQLExecutor, tournamentID int, checkedInOnly bool) ([]*models.Participant, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*models.Participant, 0)
	for _, p := range r.s.participants {
		if p.TournamentID != tournamentID || (checkedInOnly && !p.CheckedIn) {
			continue
		}
		p := p
		out = append(out, &p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r fakeParticipantRepo) SetCheckedIn(_ context.Context, _ repositories.SQLExecutor, id int, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.participants[id]
	if !ok {
		return repositories.ErrParticipantNotFound
	}
	p.CheckedIn = true
	p.CheckedInAt = &at
	r.s.participants[id] = p
	return nil
}

type fakeUserRepo struct{ s *fakeStore }

func (r fakeUserRepo) GetByID(_ context.Context, _ repositories.SQLExecutor, id int) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, repositories.ErrUserNotFound
	}
	return &u, nil
}

func (r fakeUserRepo) ListByIDs(_ context.Context, _ repositories.SQLExecutor, ids []int) ([]*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*models.User, 0, len(ids))
	for _, id := range ids {
		if u, ok := r.s.users[id]; ok {
			out = append(out, &u)
		}
	}
	return out, nil
}

type fakeDisputeRepo struct{ s *fakeStore }

func (r fakeDisputeRepo) Create(_ context.Context, _ repositories.SQLExecutor, d *models.Dispute) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, other := range r.s.disputes {
		if other.MatchID == d.MatchID && other.Status == models.DisputeStatusPending {
			return repositories.ErrDisputeOpenConflict
		}
	}
	d.ID = r.s.id()
	d.CreatedAt = time.Now()
	r.s.disputes[d.ID] = *d
	return nil
}

func (r fakeDisputeRepo) GetByID(_ context.Context, _ repositories.SQLExecutor, id int) (*models.Dispute, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	d, ok := r.s.disputes[id]
	if !ok {
		return nil, repositories.ErrDisputeNotFound
	}
	return &d, nil
}

func (r fakeDisputeRepo) GetForUpdate(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Dispute, error) {
	return r.GetByID(ctx, exec, id)
}

func (r fakeDisputeRepo) GetOpenByMatch(_ context.Context, _ repositories.SQLExecutor, matchID int) (*models.Dispute, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, d := range r.s.disputes {
		if d.MatchID == matchID && d.Status == models.DisputeStatusPending {
			return &d, nil
		}
	}
	return nil, repositories.ErrDisputeNotFound
}

func (r fakeDisputeRepo) Resolve(_ context.Context, _ repositories.SQLExecutor, d *models.Dispute) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.resolveErr; err != nil {
		r.s.resolveErr = nil
		return err
	}
	cur, ok := r.s.disputes[d.ID]
	if !ok || cur.Status != models.DisputeStatusPending {
		return repositories.ErrDisputeNotFound
	}
	r.s.disputes[d.ID] = *d
	return nil
}

func (r fakeDisputeRepo) List(_ context.Context, _ repositories.SQLExecutor, filter repositories.ListDisputesFilter) ([]*models.Dispute, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*models.Dispute, 0)
	for _, d := range r.s.disputes {
		if filter.Status != nil && d.Status != *filter.Status {
			continue
		}
		if filter.TournamentID != nil && d.TournamentID != *filter.TournamentID {
			continue
		}
		d := d
		out = append(out, &d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if filter.Offset >= len(out) {
		return []*models.Dispute{}, nil
	}
	out = out[filter.Offset:]
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

type fakeRatingRepo struct{ s *fakeStore }

func (r fakeRatingRepo) GetForUpdate(_ context.Context, _ repositories.SQLExecutor, userID int) (*models.PlayerRating, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[userID]; !ok {
		return nil, repositories.ErrRatingUserInvalid
	}
	pr, ok := r.s.ratings[userID]
	if !ok {
		pr = models.PlayerRating{UserID: userID, Rank: models.RankUnranked}
		r.s.ratings[userID] = pr
	}
	return &pr, nil
}

func (r fakeRatingRepo) Update(_ context.Context, _ repositories.SQLExecutor, pr *models.PlayerRating) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if pr.Points < 0 {
		return fmt.Errorf("points for user %d would be negative", pr.UserID)
	}
	pr.UpdatedAt = time.Now()
	r.s.ratings[pr.UserID] = *pr
	return nil
}

func (r fakeRatingRepo) AppendChange(_ context.Context, _ repositories.SQLExecutor, c *models.RankingChange) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, other := range r.s.changes {
		if other.UserID != c.UserID {
			continue
		}
		if c.MatchID != nil && other.MatchID != nil && *c.MatchID == *other.MatchID {
			return repositories.ErrRankingChangeExists
		}
		if c.ChallengeID != nil && other.ChallengeID != nil && *c.ChallengeID == *other.ChallengeID {
			return repositories.ErrRankingChangeExists
		}
	}
	c.ID = r.s.id()
	c.CreatedAt = time.Now()
	r.s.changes = append(r.s.changes, *c)
	return nil
}

func (r fakeRatingRepo) ListChanges(_ context.Context, _ repositories.SQLExecutor, userID int) ([]*models.RankingChange, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*models.RankingChange, 0)
	for _, c := range r.s.changes {
		if c.UserID == userID {
			c := c
			out = append(out, &c)
		}
	}
	return out, nil
}

func (r fakeRatingRepo) Leaderboard(_ context.Context, _ repositories.SQLExecutor, limit, offset int) ([]*models.PlayerRating, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*models.PlayerRating, 0)
	for _, pr := range r.s.ratings {
		if pr.RankedMatches > 0 {
			pr := pr
			out = append(out, &pr)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Points != out[j].Points {
			return out[i].Points > out[j].Points
		}
		return out[i].UserID < out[j].UserID
	})
	if offset >= len(out) {
		return []*models.PlayerRating{}, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type fakeChallengeRepo struct{ s *fakeStore }

func (r fakeChallengeRepo) Create(_ context.Context, _ repositories.SQLExecutor, c *models.Challenge) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c.ID = r.s.id()
	c.Version = 1
	c.CreatedAt = time.Now()
	r.s.challenges[c.ID] = *c
	return nil
}

func (r fakeChallengeRepo) GetByID(_ context.Context, _ repositories.SQLExecutor, id int) (*models.Challenge, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.challenges[id]
	if !ok {
		return nil, repositories.ErrChallengeNotFound
	}
	return &c, nil
}

func (r fakeChallengeRepo) GetForUpdate(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Challenge, error) {
	return r.GetByID(ctx, exec, id)
}

func (r fakeChallengeRepo) Update(_ context.Context, _ repositories.SQLExecutor, c *models.Challenge) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.challenges[c.ID]
	if !ok || cur.Version != c.Version {
		return repositories.ErrChallengeVersionConflict
	}
	c.Version++
	r.s.challenges[c.ID] = *c
	return nil
}

func (r fakeChallengeRepo) ListByUser(_ context.Context, _ repositories.SQLExecutor, userID int) ([]*models.Challenge, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*models.Challenge, 0)
	for _, c := range r.s.challenges {
		if c.HasUser(userID) {
			c := c
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

// --- collaborators ---

type fakeRecorder struct {
	mu          sync.Mutex
	transitions map[string]int
	adjustments []string
	conflicts   int
	dropped     int
}

func newFakeRecorder() *fakeRecorder {
	return &fakeRecorder{transitions: map[string]int{}}
}

func (r *fakeRecorder) RecordTransition(event, outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transitions[event+"/"+outcome]++
}

func (r *fakeRecorder) RecordRatingAdjustment(reason string, _, _ int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adjustments = append(r.adjustments, reason)
}

func (r *fakeRecorder) RecordAdvancementConflict() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conflicts++
}

func (r *fakeRecorder) RecordNotificationDropped() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dropped++
}

func (r *fakeRecorder) transition(key string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.transitions[key]
}

func (r *fakeRecorder) conflictCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.conflicts
}

type fakeNotifier struct {
	mu     sync.Mutex
	events []notify.Event
	err    error
}

func (n *fakeNotifier) Notify(_ context.Context, ev notify.Event) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
	return n.err
}

func (n *fakeNotifier) types() []notify.EventType {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]notify.EventType, len(n.events))
	for i, ev := range n.events {
		out[i] = ev.Type
	}
	return out
}

func (n *fakeNotifier) reset() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = nil
}

type fakeUploader struct {
	mu      sync.Mutex
	objects map[string][]byte
	deleted []string
}

func newFakeUploader() *fakeUploader {
	return &fakeUploader{objects: map[string][]byte{}}
}

func (u *fakeUploader) Upload(_ context.Context, key string, _ string, reader io.Reader) (*storage.UploadResult, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	u.objects[key] = data
	return &storage.UploadResult{Key: key, Location: u.GetPublicURL(key)}, nil
}

func (u *fakeUploader) Delete(_ context.Context, key string) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	delete(u.objects, key)
	u.deleted = append(u.deleted, key)
	return nil
}

func (u *fakeUploader) GetPublicURL(key string) string {
	return "https://cdn.example.test/" + key
}

func (u *fakeUploader) PresignGet(_ context.Context, key string, ttl time.Duration) (string, error) {
	return "https://signed.example.test/" + key + "?ttl=" + ttl.String(), nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
