package engine

import (
	"testing"

	"tally/engine/db"

	"github.com/stretchr/testify/assert"
)

func TestInjectState(t *testing.T) {
	timed := db.InjectSchema{StartMinute: 10, DurationMinutes: 5}

	t.Run("pending before start", func(t *testing.T) {
		assert.Equal(t, InjectPending, InjectState(timed, 9))
	})

	t.Run("active inside the window", func(t *testing.T) {
		assert.Equal(t, InjectActive, InjectState(timed, 10))
		assert.Equal(t, InjectActive, InjectState(timed, 14))
	})

	t.Run("expires exactly at start plus duration", func(t *testing.T) {
		assert.Equal(t, InjectExpired, InjectState(timed, 15))
		assert.Equal(t, InjectExpired, InjectState(timed, 16))
	})

	t.Run("sticky never expires", func(t *testing.T) {
		sticky := db.InjectSchema{StartMinute: 10, Sticky: true}
		assert.Equal(t, InjectPending, InjectState(sticky, 9))
		assert.Equal(t, InjectActive, InjectState(sticky, 10))
		assert.Equal(t, InjectActive, InjectState(sticky, 100000))
	})
}

func TestSubmissionLate(t *testing.T) {
	timed := db.InjectSchema{StartMinute: 10, DurationMinutes: 5}
	assert.False(t, SubmissionLate(timed, 14))
	assert.True(t, SubmissionLate(timed, 15), "late starts exactly at the due minute")
	assert.True(t, SubmissionLate(timed, 16))

	sticky := db.InjectSchema{StartMinute: 10, Sticky: true}
	assert.False(t, SubmissionLate(sticky, 100000), "sticky submissions are never late")
}

func TestValidateUpload(t *testing.T) {
	t.Run("unrestricted accepts anything", func(t *testing.T) {
		inject := db.InjectSchema{}
		assert.NoError(t, ValidateUpload(inject, "report.pdf"))
		assert.NoError(t, ValidateUpload(inject, "noextension"))
	})

	t.Run("empty allow-list rejects everything", func(t *testing.T) {
		inject := db.InjectSchema{RestrictUploads: true}
		assert.Error(t, ValidateUpload(inject, "report.pdf"))
	})

	t.Run("allow-list filters by extension", func(t *testing.T) {
		inject := db.InjectSchema{RestrictUploads: true, FileTypes: []string{"pdf", "docx"}}
		assert.NoError(t, ValidateUpload(inject, "report.pdf"))
		assert.NoError(t, ValidateUpload(inject, "REPORT.PDF"))
		assert.Error(t, ValidateUpload(inject, "report.txt"))
		assert.Error(t, ValidateUpload(inject, "report"))
	})
}

func TestUniqueStoredName(t *testing.T) {
	assert.Equal(t, "report.pdf", UniqueStoredName("report.pdf", nil))
	assert.Equal(t, "report (2).pdf", UniqueStoredName("report.pdf", []string{"report.pdf"}))
	assert.Equal(t, "report (3).pdf", UniqueStoredName("report.pdf", []string{"report.pdf", "report (2).pdf"}))
	assert.Equal(t, "notes (2)", UniqueStoredName("notes", []string{"notes"}))
}
