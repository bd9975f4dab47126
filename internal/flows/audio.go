package flows

import "context"

// AudioDeps captures audio-play coordination dependencies. There is
// deliberately no session store here: playback hand-off never touches it.
type AudioDeps struct {
	Broadcast func(ctx context.Context, userID, currentSessionID string)
}

// RunAudioPlay asks every other device of the user to stop playback.
func RunAudioPlay(ctx context.Context, userID, currentSessionID string, deps AudioDeps) {
	deps.Broadcast(ctx, userID, currentSessionID)
}
