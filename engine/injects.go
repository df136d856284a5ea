package engine

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"

	"tally/engine/db"
)

// InjectStatus is recomputed from elapsed clock minutes on every read,
// never stored.
type InjectStatus string

const (
	InjectPending InjectStatus = "pending"
	InjectActive  InjectStatus = "active"
	InjectExpired InjectStatus = "expired"
)

// InjectState classifies an inject against the elapsed competition minutes
func InjectState(inject db.InjectSchema, elapsedMinutes int) InjectStatus {
	if elapsedMinutes < inject.StartMinute {
		return InjectPending
	}
	if inject.Sticky {
		return InjectActive
	}
	if elapsedMinutes >= inject.StartMinute+inject.DurationMinutes {
		return InjectExpired
	}
	return InjectActive
}

// SubmissionLate reports whether an upload at the given minute counts as
// late. Sticky injects have no due time.
func SubmissionLate(inject db.InjectSchema, uploadMinute int) bool {
	if inject.Sticky {
		return false
	}
	return uploadMinute >= inject.StartMinute+inject.DurationMinutes
}

// ValidateUpload enforces the inject's file type allow-list on a filename
func ValidateUpload(inject db.InjectSchema, filename string) error {
	if !inject.RestrictUploads {
		return nil
	}
	if len(inject.FileTypes) == 0 {
		return fmt.Errorf("inject %s does not accept uploads", inject.Name)
	}
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	if !slices.Contains([]string(inject.FileTypes), ext) {
		return fmt.Errorf("file type %q not accepted, allowed: %s", ext, strings.Join(inject.FileTypes, ", "))
	}
	return nil
}

// UniqueStoredName deduplicates an upload's on-disk name against names
// already taken for the inject, artifact style: "report.pdf" becomes
// "report (2).pdf" and so on.
func UniqueStoredName(filename string, taken []string) string {
	if !slices.Contains(taken, filename) {
		return filename
	}
	ext := filepath.Ext(filename)
	base := strings.TrimSuffix(filename, ext)
	for n := 2; ; n++ {
		candidate := fmt.Sprintf("%s (%d)%s", base, n, ext)
		if !slices.Contains(taken, candidate) {
			return candidate
		}
	}
}

type serviceDirective struct {
	Name       string `json:"name"`
	Command    string `json:"command"`
	Multiplier int    `json:"multiplier"`
}

// applyDueSideEffects applies directives of injects that have started and
// haven't had theirs applied yet. Known kinds mutate the service table;
// unknown kinds are kept in the inject untouched.
func (se *ScoringEngine) applyDueSideEffects() error {
	injects, err := db.GetInjects()
	if err != nil {
		return err
	}

	elapsed := se.Clock.ElapsedMinutes()
	for _, inject := range injects {
		if inject.SideEffectsApplied || len(inject.SideEffects) == 0 || elapsed < inject.StartMinute {
			continue
		}

		var directives []map[string]json.RawMessage
		if err := json.Unmarshal(inject.SideEffects, &directives); err != nil {
			slog.Error("inject has malformed side effects, skipping", "inject", inject.Name, "error", err)
			continue
		}

		for _, directive := range directives {
			for kind, raw := range directive {
				if err := applyDirective(kind, raw); err != nil {
					slog.Error("failed to apply inject side effect", "inject", inject.Name, "kind", kind, "error", err)
				}
			}
		}

		if err := db.MarkSideEffectsApplied(inject.ID); err != nil {
			return err
		}
		slog.Info("applied inject side effects", "inject", inject.Name)
	}
	return nil
}

func applyDirective(kind string, raw json.RawMessage) error {
	var directive serviceDirective
	switch kind {
	case "add_service":
		if err := json.Unmarshal(raw, &directive); err != nil {
			return err
		}
		_, err := db.CreateService(db.ServiceSchema{
			Name:       directive.Name,
			Command:    directive.Command,
			Multiplier: directive.Multiplier,
		})
		return err
	case "edit_service":
		if err := json.Unmarshal(raw, &directive); err != nil {
			return err
		}
		service, err := db.GetServiceByName(directive.Name)
		if err != nil {
			return err
		}
		if directive.Command != "" {
			service.Command = directive.Command
		}
		service.Multiplier = directive.Multiplier
		_, err = db.UpdateService(service)
		return err
	case "delete_service":
		if err := json.Unmarshal(raw, &directive); err != nil {
			return err
		}
		return db.DeleteService(directive.Name)
	default:
		slog.Warn("unknown inject side effect kind, passing through", "kind", kind)
		return nil
	}
}

// RecordSubmission validates and appends one team upload for an inject.
// Prior submissions are kept; the stored name is deduplicated for the
// file the caller writes to disk.
func (se *ScoringEngine) RecordSubmission(inject db.InjectSchema, teamID uint, filename string, submissionUuid string) (db.SubmissionSchema, error) {
	se.stateMutex.RLock()
	defer se.stateMutex.RUnlock()

	if !se.Clock.Active() {
		return db.SubmissionSchema{}, fmt.Errorf("competition is not running")
	}

	elapsed := se.Clock.ElapsedMinutes()
	if elapsed < inject.StartMinute {
		return db.SubmissionSchema{}, fmt.Errorf("inject %s has not started", inject.Name)
	}

	if err := ValidateUpload(inject, filename); err != nil {
		return db.SubmissionSchema{}, err
	}

	taken, err := db.GetStoredNamesForInject(inject.ID)
	if err != nil {
		return db.SubmissionSchema{}, err
	}

	submission := db.SubmissionSchema{
		Uuid:       submissionUuid,
		InjectID:   inject.ID,
		TeamID:     teamID,
		Filename:   filename,
		StoredName: UniqueStoredName(filename, taken),
		UploadTime: elapsed,
		Late:       SubmissionLate(inject, elapsed),
	}
	return db.CreateSubmission(submission)
}
