package validate_test

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"masterdata/master"
	"masterdata/validate"
)

func ptr[T any](v T) *T { return &v }

var _ = Describe("Validator", func() {
	var v *validate.Validator

	BeforeEach(func() {
		var err error
		v, err = validate.New(map[string][]string{
			"name":   {"self.size() > 0", "self.size() <= 10"},
			"status": {"self in ['show', 'hide']"},
			"order":  {"self >= 0"},
		}, []string{"name"})
		Expect(err).NotTo(HaveOccurred())
	})

	fieldsOf := func(err error) map[string][]string {
		var verr *master.ValidationError
		Expect(errors.As(err, &verr)).To(BeTrue())
		return verr.Fields
	}

	Describe("ValidateCreate", func() {
		It("accepts a valid payload", func() {
			err := v.ValidateCreate(master.Attributes{Name: ptr("X"), Status: ptr("show"), Order: ptr(2)})
			Expect(err).NotTo(HaveOccurred())
		})

		It("requires configured fields", func() {
			err := v.ValidateCreate(master.Attributes{Code: ptr("IN")})
			Expect(err).To(MatchError(master.ErrValidation))
			Expect(fieldsOf(err)).To(HaveKeyWithValue("name", ContainElement("is required")))
		})

		It("treats a blank string as missing", func() {
			err := v.ValidateCreate(master.Attributes{Name: ptr("   ")})
			Expect(fieldsOf(err)).To(HaveKey("name"))
		})

		It("reports every failed rule per field", func() {
			err := v.ValidateCreate(master.Attributes{
				Name:   ptr("much too long a name"),
				Status: ptr("archived"),
				Order:  ptr(-1),
			})
			fields := fieldsOf(err)
			Expect(fields).To(HaveLen(3))
			Expect(fields["name"]).To(ConsistOf(ContainSubstring("self.size() <= 10")))
			Expect(master.Classify(err)).To(Equal(master.KindValidation))
		})
	})

	Describe("ValidateUpdate", func() {
		It("allows omitting required fields", func() {
			Expect(v.ValidateUpdate(master.Attributes{Status: ptr("hide")})).To(Succeed())
		})

		It("rejects blanking a required field", func() {
			err := v.ValidateUpdate(master.Attributes{Name: ptr("")})
			Expect(fieldsOf(err)).To(HaveKeyWithValue("name", ContainElement("is required")))
		})
	})

	It("reports a rule that does not fit the value type", func() {
		bad, err := validate.New(map[string][]string{"order": {"self.size() > 0"}}, nil)
		Expect(err).NotTo(HaveOccurred())

		err = bad.ValidateUpdate(master.Attributes{Order: ptr(1)})
		Expect(fieldsOf(err)).To(HaveKeyWithValue("order", ContainElement(ContainSubstring("cannot evaluate"))))
	})

	It("fails fast on an invalid expression", func() {
		_, err := validate.New(map[string][]string{"name": {"self.size( >"}}, nil)
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("rule for name"))
	})

	It("rejects an empty expression", func() {
		_, err := validate.New(map[string][]string{"name": {" "}}, nil)
		Expect(err).To(HaveOccurred())
	})
})
