package waitlist

import "html"

const confirmSubject = "Confirm your genesis spot on BaseRise 🚀"

const buttonStyle = `background:#2563eb; color:white; padding:12px 24px; text-decoration:none; border-radius:8px; display:inline-block; font-weight:bold;`

func welcomeHTML(link string) string {
	return `<div style="font-family: sans-serif; text-align: center;">
  <h2>Welcome to the Evolution!</h2>
  <p>Click the button below to verify your spot and activate your referral dashboard.</p>
  <a href="` + html.EscapeString(link) + `" style="` + buttonStyle + `">CONFIRM MY SPOT</a>
  <p style="margin-top:20px; font-size:12px; color:#666;">This link will redirect you to the protocol initialization page.</p>
</div>`
}

func welcomeBackHTML(link string) string {
	return `<div style="font-family: sans-serif; text-align: center;">
  <h2>Welcome Back!</h2>
  <p>It seems you didn't verify your spot yet. Click below:</p>
  <a href="` + html.EscapeString(link) + `" style="` + buttonStyle + `">CONFIRM MY SPOT</a>
</div>`
}
