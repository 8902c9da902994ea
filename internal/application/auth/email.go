package auth

import (
	"fmt"
	"time"
)

const otpSubject = "Your BaseRise login code"

func otpEmailHTML(code string, ttl time.Duration) string {
	return fmt.Sprintf(`<div style="font-family: sans-serif; text-align: center;">
  <h2>Your login code</h2>
  <p>Enter this code to view your referral dashboard:</p>
  <p style="font-size:28px; letter-spacing:6px; font-weight:bold;">%s</p>
  <p style="margin-top:20px; font-size:12px; color:#666;">The code expires in %d minutes. If you did not request it, ignore this email.</p>
</div>`, code, int(ttl.Minutes()))
}
