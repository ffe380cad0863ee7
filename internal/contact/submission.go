// Package contact captures "talk to a human" requests. Submit validates and
// acknowledges immediately; delivery to the spreadsheet and the local backup
// happens afterwards in the background.
package contact

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// ErrInvalidSubmission wraps every validation failure.
var ErrInvalidSubmission = errors.New("invalid contact submission")

// Header is the column header row shared by both sinks.
var Header = []string{"Name", "Email", "Issue", "Timestamp"}

// Submission is one contact request. It is written once and never updated.
type Submission struct {
	Name      string    `json:"name" validate:"required"`
	Email     string    `json:"email" validate:"required,email"`
	Issue     string    `json:"issue" validate:"required"`
	Timestamp time.Time `json:"timestamp"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Normalize trims the text fields.
func (s Submission) Normalize() Submission {
	s.Name = strings.TrimSpace(s.Name)
	s.Email = strings.TrimSpace(s.Email)
	s.Issue = strings.TrimSpace(s.Issue)
	return s
}

// Validate checks the trimmed fields. Errors wrap ErrInvalidSubmission.
func (s Submission) Validate() error {
	err := validate.Struct(s.Normalize())
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrInvalidSubmission, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fe.Field()+" is required")
		case "email":
			msgs = append(msgs, fe.Field()+" must be a valid email address")
		default:
			msgs = append(msgs, fe.Field()+" is invalid")
		}
	}
	return fmt.Errorf("%w: %s", ErrInvalidSubmission, strings.Join(msgs, "; "))
}

// Row renders the submission as a sheet row.
func (s Submission) Row() []string {
	return []string{s.Name, s.Email, s.Issue, s.Timestamp.UTC().Format(time.RFC3339)}
}

// Row is a submission read back from a sink.
type Row struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	Issue     string `json:"issue"`
	Timestamp string `json:"timestamp"`
}

func rowFromCells(cells []string) Row {
	get := func(i int) string {
		if i < len(cells) {
			return cells[i]
		}
		return ""
	}
	return Row{Name: get(0), Email: get(1), Issue: get(2), Timestamp: get(3)}
}

// Ack is the optimistic confirmation shown to the visitor.
type Ack struct {
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Direct contact details quoted in the acknowledgement.
const (
	ContactEmail = "invest@arvocap.com"
	ContactPhone = "+254 701 300 200"
)

func ackMessage(s Submission) string {
	return fmt.Sprintf("Thank you, %s! Your inquiry has been submitted successfully. "+
		"Our team will contact you at %s within 2 business hours regarding: \"%s\"\n\n"+
		"You can also reach us directly at:\n📧 Email: %s\n📞 Phone: %s\n\n"+
		"✅ Your information is being saved to our secure database.",
		s.Name, s.Email, s.Issue, ContactEmail, ContactPhone)
}
