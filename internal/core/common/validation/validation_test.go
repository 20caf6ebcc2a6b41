package validation_test

import (
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/permit-management/internal"
	"github.com/frahmantamala/permit-management/internal/core/common/validation"
)

func TestValidation(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Validation Suite")
}

func fields(err *internal.AppError) []string {
	details, ok := err.Details.(internal.ValidationErrors)
	Expect(ok).To(BeTrue())
	var out []string
	for _, e := range details.Errors {
		out = append(out, e.Field)
	}
	return out
}

var _ = Describe("ValidationBuilder", func() {
	It("passes valid input", func() {
		v := validation.NewValidator()
		v.Field("full_name", "Ada").Required().MaxLength(10)
		v.Field("type", "temporary").OneOf([]string{"temporary", "permanent"}, internal.ErrCodeInvalidPermitType)
		Expect(v.Validate()).To(BeNil())
	})

	It("reports one error per failing field", func() {
		blank := "  "
		v := validation.NewValidator()
		v.Field("full_name", "").Required().MaxLength(3)
		v.Field("justification", &blank).Required()
		v.Field("department_id", int64(-1)).Positive()
		v.Field("type", "forever").OneOf([]string{"temporary"}, internal.ErrCodeInvalidPermitType)

		err := v.Validate()
		Expect(err).NotTo(BeNil())
		Expect(fields(err)).To(Equal([]string{"full_name", "justification", "department_id", "type"}))
	})

	It("checks validity windows", func() {
		now := time.Now()
		Expect(validation.ValidateWindow(now, now.Add(time.Hour), 0)).To(BeNil())
		Expect(validation.ValidateWindow(now, now, 0)).NotTo(BeNil())
		Expect(validation.ValidateWindow(now, now.Add(48*time.Hour), 24*time.Hour)).NotTo(BeNil())
	})

	It("parses both timestamp and date forms", func() {
		t, err := validation.ParseDate("from", "2026-03-01")
		Expect(err).To(BeNil())
		Expect(t).To(Equal(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)))

		_, err = validation.ParseDate("from", "2026-03-01T10:00:00Z")
		Expect(err).To(BeNil())

		_, err = validation.ParseDate("from", "yesterday")
		Expect(err).NotTo(BeNil())
		Expect(err.Code).To(Equal(internal.ErrCodeValidationFailed))
	})
})
