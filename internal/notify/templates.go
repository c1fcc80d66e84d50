package notify

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
)

type milestoneCopy struct {
	Subject string
	Body    string
}

var milestoneCopies = map[int]milestoneCopy{
	5: {
		Subject: "Congratulations on Your First Major Step! - EasyPeasy",
		Body:    "You've completed Chapter 5 - this is a significant milestone in your journey to freedom!",
	},
	10: {
		Subject: "You're Halfway Free! - EasyPeasy",
		Body:    "You've completed Chapter 10 - you're now halfway through your journey to complete freedom!",
	},
	20: {
		Subject: "You've Completed the Journey! - EasyPeasy",
		Body:    "Congratulations! You've completed all 20 chapters and are now free. Your streak starts today!",
	},
}

var layoutTemplate = template.Must(template.New("email").Parse(`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px; color: #333;">
<h1 style="color: #4F46E5; font-size: 24px;">{{.Heading}}</h1>
{{range .Paragraphs}}<p style="font-size: 16px; line-height: 1.5;">{{.}}</p>
{{end}}{{if .ActionURL}}<p style="text-align: center;"><a href="{{.ActionURL}}" style="background-color: #4F46E5; color: white; padding: 12px 24px; text-decoration: none; border-radius: 5px; display: inline-block; font-weight: bold;">{{.ActionLabel}}</a></p>
<p style="font-size: 14px; word-break: break-all; color: #4F46E5;">{{.ActionURL}}</p>
{{end}}<p style="font-size: 16px;">The EasyPeasy Team</p>
</div>`))

type layoutData struct {
	Heading     string
	Paragraphs  []string
	ActionURL   string
	ActionLabel string
}

func renderLayout(data layoutData) (string, error) {
	var buffer bytes.Buffer
	if err := layoutTemplate.Execute(&buffer, data); err != nil {
		return "", fmt.Errorf("render email: %w", err)
	}
	return buffer.String(), nil
}

func plainText(data layoutData) string {
	lines := append([]string{data.Heading}, data.Paragraphs...)
	if data.ActionURL != "" {
		lines = append(lines, data.ActionURL)
	}
	return strings.Join(lines, "\n\n")
}

func build(to string, subject string, data layoutData) (Email, error) {
	html, err := renderLayout(data)
	if err != nil {
		return Email{}, err
	}
	return Email{To: to, Subject: subject, HTML: html, Text: plainText(data)}, nil
}

func IsMilestoneChapter(chapter int) bool {
	_, ok := milestoneCopies[chapter]
	return ok
}

func MilestoneEmail(to string, chapter int) (Email, error) {
	text, ok := milestoneCopies[chapter]
	if !ok {
		return Email{}, fmt.Errorf("chapter %d is not a milestone", chapter)
	}
	return build(to, text.Subject, layoutData{
		Heading:    strings.TrimSuffix(text.Subject, " - EasyPeasy"),
		Paragraphs: []string{text.Body},
	})
}

func WelcomeEmail(to string, name string, startURL string) (Email, error) {
	if strings.TrimSpace(name) == "" {
		name = "Friend"
	}
	return build(to, "Welcome to Your Journey with EasyPeasy!", layoutData{
		Heading: "Welcome to EasyPeasy!",
		Paragraphs: []string{
			fmt.Sprintf("We're so glad you're here, %s.", name),
			"Today marks the beginning of a meaningful journey toward freedom and wellness. Every step you take with EasyPeasy brings you closer to the life you truly deserve.",
			"Remember, you're not alone on this journey. We're here to support you every step of the way.",
		},
		ActionURL:   startURL,
		ActionLabel: "Start Chapter 1",
	})
}

func PasswordResetEmail(to string, resetURL string) (Email, error) {
	return build(to, "Reset your EasyPeasy password", layoutData{
		Heading: "Reset your password",
		Paragraphs: []string{
			"Someone asked to reset the password for your EasyPeasy account. The link below is valid for 30 minutes and works once.",
			"If you didn't ask for this, you can safely ignore this email.",
		},
		ActionURL:   resetURL,
		ActionLabel: "Choose a new password",
	})
}
