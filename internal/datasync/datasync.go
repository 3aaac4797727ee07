// Package datasync copies installed pack records and the user profile between
// the YAML state files and the database.
package datasync

import (
	"context"
	"fmt"
	"io"
	"reflect"

	"github.com/at-ishikawa/lexipack/internal/languagepack"
	"github.com/at-ishikawa/lexipack/internal/profile"
)

// SyncResult tracks counts for each sync operation.
type SyncResult struct {
	PacksNew       int
	PacksSkipped   int
	PacksUpdated   int
	ProfileNew     int
	ProfileSkipped int
	ProfileUpdated int
}

func (r *SyncResult) add(other *SyncResult) {
	r.PacksNew += other.PacksNew
	r.PacksSkipped += other.PacksSkipped
	r.PacksUpdated += other.PacksUpdated
	r.ProfileNew += other.ProfileNew
	r.ProfileSkipped += other.ProfileSkipped
	r.ProfileUpdated += other.ProfileUpdated
}

// SyncOptions controls sync behavior.
type SyncOptions struct {
	DryRun         bool
	UpdateExisting bool
}

// State is one side of a sync.
type State struct {
	Packs   languagepack.Repository
	Profile profile.Repository
}

// Syncer copies state from one store to another and reports each record to
// writer.
type Syncer struct {
	from   State
	to     State
	writer io.Writer
}

func NewSyncer(from, to State, writer io.Writer) *Syncer {
	return &Syncer{
		from:   from,
		to:     to,
		writer: writer,
	}
}

// Sync copies the installed packs, then the profile.
func (s *Syncer) Sync(ctx context.Context, opts SyncOptions) (*SyncResult, error) {
	var result SyncResult

	packs, err := s.SyncPacks(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("SyncPacks() > %w", err)
	}
	result.add(packs)

	userProfile, err := s.SyncProfile(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("SyncProfile() > %w", err)
	}
	result.add(userProfile)
	return &result, nil
}

// SyncPacks copies installed pack records. Records already in the
// destination are kept unless opts.UpdateExisting is set.
func (s *Syncer) SyncPacks(ctx context.Context, opts SyncOptions) (*SyncResult, error) {
	var result SyncResult

	packs, err := s.from.Packs.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("FindAll() > %w", err)
	}

	for i := range packs {
		pack := packs[i]
		existing, err := s.to.Packs.FindByID(ctx, pack.ID)
		if err != nil {
			return nil, fmt.Errorf("FindByID(%s) > %w", pack.ID, err)
		}

		if existing != nil {
			if !opts.UpdateExisting || reflect.DeepEqual(*existing, pack) {
				fmt.Fprintf(s.writer, "  [SKIP]  pack %s\n", pack.ID)
				result.PacksSkipped++
				continue
			}
			if !opts.DryRun {
				if err := s.to.Packs.Save(ctx, &pack); err != nil {
					return nil, fmt.Errorf("Save(%s) > %w", pack.ID, err)
				}
			}
			fmt.Fprintf(s.writer, "  [UPDATE]  pack %s\n", pack.ID)
			result.PacksUpdated++
			continue
		}

		if !opts.DryRun {
			if err := s.to.Packs.Save(ctx, &pack); err != nil {
				return nil, fmt.Errorf("Save(%s) > %w", pack.ID, err)
			}
		}
		fmt.Fprintf(s.writer, "  [NEW]  pack %s\n", pack.ID)
		result.PacksNew++
	}

	return &result, nil
}

// SyncProfile copies the profile when the source has one.
func (s *Syncer) SyncProfile(ctx context.Context, opts SyncOptions) (*SyncResult, error) {
	var result SyncResult

	source, err := s.from.Profile.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("Load() > %w", err)
	}
	if source == nil {
		return &result, nil
	}

	existing, err := s.to.Profile.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("Load(destination) > %w", err)
	}

	if existing != nil && !opts.UpdateExisting {
		fmt.Fprintf(s.writer, "  [SKIP]  profile %s\n", source.UserID)
		result.ProfileSkipped++
		return &result, nil
	}

	if !opts.DryRun {
		if err := s.to.Profile.Save(ctx, source); err != nil {
			return nil, fmt.Errorf("Save() > %w", err)
		}
	}
	if existing != nil {
		fmt.Fprintf(s.writer, "  [UPDATE]  profile %s\n", source.UserID)
		result.ProfileUpdated++
	} else {
		fmt.Fprintf(s.writer, "  [NEW]  profile %s\n", source.UserID)
		result.ProfileNew++
	}
	return &result, nil
}
