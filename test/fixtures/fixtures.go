package fixtures

import (
	"fmt"

	"github.com/mhkarimi/portfolio-backend/internal/model"
)

func NewContactRequest(name, email, subject, message string) model.ContactRequest {
	return model.ContactRequest{
		Name:    name,
		Email:   email,
		Subject: subject,
		Message: message,
	}
}

func ContactRequestValid() model.ContactRequest {
	return NewContactRequest(
		"John Doe",
		"john@example.com",
		"Project inquiry",
		"Hello, I would like to discuss a potential project with you.",
	)
}

func ContactRequestNoSubject() model.ContactRequest {
	r := ContactRequestValid()
	r.Subject = ""
	return r
}

func ContactRequestSpamKeyword() model.ContactRequest {
	r := ContactRequestValid()
	r.Message = "You are a winner! Claim your lottery prize today."
	return r
}

func ContactRequestSpamLinks() model.ContactRequest {
	r := ContactRequestValid()
	r.Message = "Check https://first.example.com and https://second.example.com now"
	return r
}

func ContactRequestInvalidEmail() model.ContactRequest {
	r := ContactRequestValid()
	r.Email = "not-an-email"
	return r
}

func ContactRequestWithMarkup() model.ContactRequest {
	r := ContactRequestValid()
	r.Name = "John <b>Doe</b>"
	r.Message = "Hi <script>alert('x')</script> I like your site, javascript:void(0)"
	return r
}

func ContactRequestNumbered(i int) model.ContactRequest {
	return NewContactRequest(
		fmt.Sprintf("Visitor %d", i),
		fmt.Sprintf("visitor%d@example.com", i),
		fmt.Sprintf("Subject %d", i),
		fmt.Sprintf("This is message number %d with enough length.", i),
	)
}

var (
	ValidEmails = []string{
		"john@example.com",
		"a.b+tag@sub.example.co",
		"user_name%x@example.io",
	}

	InvalidEmails = []string{
		"",
		"plain",
		"@example.com",
		"user@",
		"user@example",
		"user @example.com",
	}
)
