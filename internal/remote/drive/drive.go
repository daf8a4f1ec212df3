// Package drive is the Google Drive variant of the remote blob store. The
// snapshot lives as a single file in the user's appDataFolder; the Drive
// head revision id serves as the opaque revision token.
package drive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"golang.org/x/oauth2"
	gdrive "google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	goption "google.golang.org/api/option"

	"moneta/internal/remote"
)

const appDataFolder = "appDataFolder"

type Store struct {
	svc      *gdrive.Service
	fileName string
}

// Ensure interface conformance
var _ remote.Store = (*Store)(nil)

func New(ctx context.Context, ts oauth2.TokenSource, fileName string) (*Store, error) {
	if fileName == "" {
		return nil, errors.New("missing drive file name")
	}
	svc, err := gdrive.NewService(ctx,
		goption.WithTokenSource(ts),
		goption.WithScopes(gdrive.DriveAppdataScope))
	if err != nil {
		return nil, fmt.Errorf("create drive service: %w", err)
	}
	return &Store{svc: svc, fileName: fileName}, nil
}

func (s *Store) Get(ctx context.Context) ([]byte, string, error) {
	f, err := s.find(ctx)
	if err != nil {
		return nil, "", err
	}
	if f == nil {
		return nil, "", remote.ErrNotFound
	}

	resp, err := s.svc.Files.Get(f.Id).Context(ctx).Download()
	if err != nil {
		return nil, "", fmt.Errorf("%w: download %s: %v", remote.ErrUnavailable, s.fileName, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("%w: read %s: %v", remote.ErrUnavailable, s.fileName, err)
	}

	slog.DebugContext(ctx, "Fetched remote snapshot",
		"file", s.fileName,
		"revision", f.HeadRevisionId,
		"size", len(data))
	return data, f.HeadRevisionId, nil
}

func (s *Store) Put(ctx context.Context, data []byte, expectedRevision string) (string, error) {
	f, err := s.find(ctx)
	if err != nil {
		return "", err
	}

	if f == nil {
		if expectedRevision != "" {
			// Expected a revision but the file is gone: somebody
			// replaced the remote out from under us.
			return "", remote.ErrConflict
		}
		created, err := s.svc.Files.Create(&gdrive.File{
			Name:    s.fileName,
			Parents: []string{appDataFolder},
		}).Media(bytes.NewReader(data)).Fields("id", "headRevisionId").Context(ctx).Do()
		if err != nil {
			return "", fmt.Errorf("%w: create %s: %v", remote.ErrUnavailable, s.fileName, err)
		}
		return created.HeadRevisionId, nil
	}

	// Drive has no compare-and-swap; re-reading the head revision right
	// before the update narrows the race to the transfer window.
	if f.HeadRevisionId != expectedRevision {
		return "", remote.ErrConflict
	}

	updated, err := s.svc.Files.Update(f.Id, &gdrive.File{}).
		Media(bytes.NewReader(data)).Fields("headRevisionId").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("%w: update %s: %v", remote.ErrUnavailable, s.fileName, err)
	}

	slog.InfoContext(ctx, "Pushed remote snapshot",
		"file", s.fileName,
		"revision", updated.HeadRevisionId,
		"size", len(data))
	return updated.HeadRevisionId, nil
}

// find returns the snapshot file metadata, or nil when none exists yet.
func (s *Store) find(ctx context.Context) (*gdrive.File, error) {
	list, err := s.svc.Files.List().
		Spaces(appDataFolder).
		Q(fmt.Sprintf("name = '%s' and trashed = false", s.fileName)).
		Fields("files(id, name, headRevisionId)").
		PageSize(1).
		Context(ctx).Do()
	if err != nil {
		var gerr *googleapi.Error
		if errors.As(err, &gerr) && gerr.Code == 404 {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: list %s: %v", remote.ErrUnavailable, s.fileName, err)
	}
	if len(list.Files) == 0 {
		return nil, nil
	}
	return list.Files[0], nil
}
