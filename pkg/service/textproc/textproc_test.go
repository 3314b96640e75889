package textproc_test

import (
	"strings"
	"testing"

	"github.com/m-mizutani/gt"

	"github.com/medscribe-lab/medscribe/pkg/service/textproc"
)

func TestNormalize(t *testing.T) {
	t.Run("collapses whitespace and newlines", func(t *testing.T) {
		got := textproc.Normalize("Patient  reports\n\nheadache\tand   nausea")
		gt.Value(t, got).Equal("Patient reports headache and nausea")
	})

	t.Run("removes space before punctuation", func(t *testing.T) {
		got := textproc.Normalize("Follow up in two weeks . Continue medication , as directed")
		gt.Value(t, got).Equal("Follow up in two weeks. Continue medication, as directed")
	})

	t.Run("canonicalizes curly quotes", func(t *testing.T) {
		got := textproc.Normalize("Patient said “I feel better” and it’s improving")
		gt.Value(t, got).Equal(`Patient said "I feel better" and it's improving`)
	})

	t.Run("empty input stays empty", func(t *testing.T) {
		gt.Value(t, textproc.Normalize("")).Equal("")
		gt.Value(t, textproc.Normalize("   \n\t ")).Equal("")
	})

	t.Run("is idempotent", func(t *testing.T) {
		inputs := []string{
			"Patient  has “chronic” migraines .\nPrescribing sumatriptan 50mg",
			"already normalized text, nothing to do.",
			"",
		}
		for _, in := range inputs {
			once := textproc.Normalize(in)
			gt.Value(t, textproc.Normalize(once)).Equal(once)
		}
	})
}

func TestEnrich(t *testing.T) {
	t.Run("appends medical context block", func(t *testing.T) {
		got := textproc.Enrich("Prescribing lisinopril 10mg for blood pressure. Patient has hypertension. Schedule follow up visit.")

		gt.Bool(t, strings.Contains(got, "Medical Context:")).True()
		gt.Bool(t, strings.Contains(got, "medication: lisinopril 10mg")).True()
		gt.Bool(t, strings.Contains(got, "condition: hypertension")).True()
		gt.Bool(t, strings.Contains(got, "action: follow up visit")).True()
	})

	t.Run("no block when nothing recognized", func(t *testing.T) {
		got := textproc.Enrich("General conversation about the weather.")
		gt.Bool(t, strings.Contains(got, "Medical Context:")).False()
		gt.Value(t, got).Equal("General conversation about the weather.")
	})

	t.Run("normalizes before matching", func(t *testing.T) {
		got := textproc.Enrich("Prescribing   metformin\n500mg twice daily")
		gt.Bool(t, strings.Contains(got, "medication: metformin 500mg")).True()
	})
}
