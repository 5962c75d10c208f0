package model

// SessionPhase enumerates the states of the session controller.
// Exactly one phase is active at a time.
type SessionPhase string

const (
	PhaseNotStarted             SessionPhase = "NOT_STARTED"
	PhaseConnecting             SessionPhase = "CONNECTING"
	PhasePlayingIntro           SessionPhase = "PLAYING_INTRO"
	PhaseAwaitingStep           SessionPhase = "AWAITING_STEP"
	PhaseAwaitingPauseMark      SessionPhase = "AWAITING_PAUSE_MARK"
	PhaseNarrationPlaying       SessionPhase = "NARRATION_PLAYING"
	PhaseQuizActive             SessionPhase = "QUIZ_ACTIVE"
	PhaseQuizFinished           SessionPhase = "QUIZ_FINISHED"
	PhaseAwaitingManualQuestion SessionPhase = "AWAITING_MANUAL_QUESTION"
	PhaseEnded                  SessionPhase = "ENDED"
)

// ConnStatus is the user-visible connection indicator.
type ConnStatus string

const (
	ConnStatusIdle         ConnStatus = "idle"
	ConnStatusConnecting   ConnStatus = "connecting"
	ConnStatusConnected    ConnStatus = "connected"
	ConnStatusDisconnected ConnStatus = "disconnected"
)

// PlayerStatus mirrors the states reported by an embedded video player.
type PlayerStatus string

const (
	PlayerUnstarted PlayerStatus = "unstarted"
	PlayerEnded     PlayerStatus = "ended"
	PlayerPlaying   PlayerStatus = "playing"
	PlayerPaused    PlayerStatus = "paused"
	PlayerBuffering PlayerStatus = "buffering"
	PlayerCued      PlayerStatus = "cued"
)

// QuizState is the observable state of the quiz for the current step.
type QuizState struct {
	CurrentIndex        int  `json:"current_index"`
	Score               int  `json:"score"`
	SelectedOptionIndex *int `json:"selected_option_index,omitempty"`
	ShowingFeedback     bool `json:"showing_feedback"`
	Finished            bool `json:"finished"`
	Total               int  `json:"total"`
}
