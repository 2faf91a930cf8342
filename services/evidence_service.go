package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"path/filepath"
	"strings"

	"github.com/Dosada05/ranked-portal/repositories"
	"github.com/Dosada05/ranked-portal/storage"
	"github.com/google/uuid"
)

const (
	MaxEvidenceSize    = 10 << 20
	evidenceKeyRoot    = "evidence/matches"
	defaultEvidenceExt = ".bin"
)

// EvidenceUpload is a stored evidence object. Key is what clients pass
// back as evidence_ref.
type EvidenceUpload struct {
	Key         string `json:"key"`
	URL         string `json:"url,omitempty"`
	ContentType string `json:"content_type"`
}

type EvidenceService interface {
	UploadEvidence(ctx context.Context, actorUserID, matchID int, file io.Reader, size int64, contentType, filename string) (*EvidenceUpload, error)
}

type evidenceService struct {
	matchRepo       repositories.MatchRepository
	participantRepo repositories.ParticipantRepository
	uploader        storage.FileUploader
	logger          *slog.Logger
}

func NewEvidenceService(
	matchRepo repositories.MatchRepository,
	participantRepo repositories.ParticipantRepository,
	uploader storage.FileUploader,
	logger *slog.Logger,
) EvidenceService {
	return &evidenceService{
		matchRepo:       matchRepo,
		participantRepo: participantRepo,
		uploader:        uploader,
		logger:          logger,
	}
}

func (s *evidenceService) UploadEvidence(ctx context.Context, actorUserID, matchID int, file io.Reader, size int64, contentType, filename string) (*EvidenceUpload, error) {
	contentType = strings.ToLower(strings.TrimSpace(contentType))
	if !strings.HasPrefix(contentType, "image/") && !strings.HasPrefix(contentType, "video/") {
		return nil, fmt.Errorf("%w: %q", ErrEvidenceUnsupported, contentType)
	}
	if size > MaxEvidenceSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrEvidenceTooLarge, size)
	}

	m, err := s.matchRepo.GetByID(ctx, nil, matchID)
	if err != nil {
		return nil, mapMatchLookupError(err, matchID)
	}
	p, err := actingParticipant(ctx, s.participantRepo, nil, actorUserID, m.TournamentID)
	if err != nil {
		return nil, err
	}
	if !m.HasParticipant(p.ID) {
		logRejection(ctx, s.logger, "upload_evidence", actorUserID, []slog.Attr{slog.Int("match_id", matchID)}, ErrNotAParticipant)
		return nil, ErrNotAParticipant
	}

	key := evidencePrefix(matchID) + uuid.NewString() + evidenceExtension(filename, contentType)
	// Declared sizes can lie; never read past the limit.
	body := io.LimitReader(file, MaxEvidenceSize+1)
	counted := &countingReader{r: body}
	if _, err := s.uploader.Upload(ctx, key, contentType, counted); err != nil {
		return nil, fmt.Errorf("failed to upload evidence for match %d: %w", matchID, err)
	}
	if counted.n > MaxEvidenceSize {
		if delErr := s.uploader.Delete(ctx, key); delErr != nil {
			s.logger.WarnContext(ctx, "failed to delete oversized evidence", slog.String("key", key), slog.Any("error", delErr))
		}
		return nil, fmt.Errorf("%w: more than %d bytes", ErrEvidenceTooLarge, MaxEvidenceSize)
	}

	out := &EvidenceUpload{Key: key, ContentType: contentType}
	if link, err := s.uploader.PresignGet(ctx, key, evidenceLinkTTL); err == nil {
		out.URL = link
	} else {
		s.logger.WarnContext(ctx, "failed to presign evidence link", slog.String("key", key), slog.Any("error", err))
	}

	s.logger.InfoContext(ctx, "evidence uploaded",
		slog.Int("match_id", matchID),
		slog.Int("user_id", actorUserID),
		slog.String("key", key),
		slog.Int64("bytes", counted.n),
	)
	return out, nil
}

func evidencePrefix(matchID int) string {
	return fmt.Sprintf("%s/%d/", evidenceKeyRoot, matchID)
}

// evidenceRef normalizes a client-supplied evidence key. Only keys issued by
// UploadEvidence for the same match are accepted.
func evidenceRef(matchID int, ref *string) (*string, error) {
	key := trimmedOrNil(ref)
	if key == nil {
		return nil, nil
	}
	if !isEvidenceKeyOf(matchID, *key) {
		return nil, fmt.Errorf("%w: evidence_ref must be a key uploaded for match %d", ErrValidationFailed, matchID)
	}
	return key, nil
}

func isEvidenceKeyOf(matchID int, key string) bool {
	rest, ok := strings.CutPrefix(key, evidencePrefix(matchID))
	return ok && rest != "" && !strings.ContainsAny(rest, "/\\") && !strings.Contains(rest, "..")
}

func evidenceExtension(filename, contentType string) string {
	if ext := strings.ToLower(filepath.Ext(filename)); ext != "" && len(ext) <= 6 {
		return ext
	}
	if exts, err := mime.ExtensionsByType(contentType); err == nil && len(exts) > 0 {
		return exts[0]
	}
	return defaultEvidenceExt
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
