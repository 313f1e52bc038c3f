package usecase

import "aegis-ai/internal/domain"

// modeAddenda maps each mode to the instruction text appended to the base
// system prompt. GENERAL has no addendum.
var modeAddenda = map[domain.Mode]string{
	domain.ModePlanning: `Mode: PLANNING.
Focus on turning the request into a concrete plan: ordered steps, rough time
estimates, and a clear first action. Call out dependencies and risks briefly.`,

	domain.ModeHealth: `Mode: HEALTH.
Focus on routines, sleep, training, and recovery. Keep suggestions small and
sustainable. You are not a medical professional; say so when a question needs
a real doctor.`,

	domain.ModeMoney: `Mode: MONEY.
Focus on income, rates, hours, and net worth. Use concrete numbers, show the
arithmetic, and state assumptions explicitly.`,
}

// ModeAddendum returns the addendum for a mode. Unknown modes and GENERAL
// return an empty string.
func ModeAddendum(mode domain.Mode) string {
	return modeAddenda[mode]
}
