package media

import (
	"context"
	"sync"

	talkio_errors "talkio/pkg/errors"
	"talkio/pkg/logger"

	"github.com/pion/webrtc/v4"
)

// PionTransport implements Transport on a Pion PeerConnection with a
// local Opus audio track and an optional VP8 video track.
type PionTransport struct {
	stunURL string
	log     *logger.Logger

	mu         sync.Mutex
	pc         *webrtc.PeerConnection
	audioTrack *webrtc.TrackLocalStaticSample
	videoTrack *webrtc.TrackLocalStaticSample
	channel    string
	connected  bool
}

func NewPionTransport(stunURL string, log *logger.Logger) *PionTransport {
	return &PionTransport{stunURL: stunURL, log: log}
}

// Join sets up the peer connection for the given session channel. If a
// previous session is still up it is torn down first; the SDK must
// never be joined twice.
func (t *PionTransport) Join(ctx context.Context, channel, userID string) error {
	t.mu.Lock()
	alreadyConnected := t.connected
	t.mu.Unlock()
	if alreadyConnected {
		if err := t.Leave(); err != nil {
			return err
		}
	}

	pc, err := webrtc.NewPeerConnection(webrtc.Configuration{
		ICEServers: []webrtc.ICEServer{
			{URLs: []string{t.stunURL}},
		},
	})
	if err != nil {
		return err
	}

	pc.OnICEConnectionStateChange(func(state webrtc.ICEConnectionState) {
		t.log.Infof("media: ice state %s on channel %s", state.String(), channel)
	})
	pc.OnTrack(func(track *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
		t.log.Infof("media: remote track %s (%s) on channel %s", track.ID(), track.Kind(), channel)
	})

	t.mu.Lock()
	t.pc = pc
	t.channel = channel
	t.connected = true
	t.mu.Unlock()

	t.log.Infof("media: joined channel %s as %s", channel, userID)
	return nil
}

// Publish adds the local audio track, plus a video track when video is
// requested. Requires a prior successful Join.
func (t *PionTransport) Publish(ctx context.Context, video bool) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.connected || t.pc == nil {
		return talkio_errors.ErrNotConnected
	}

	audio, err := webrtc.NewTrackLocalStaticSample(
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus},
		"audio", t.channel,
	)
	if err != nil {
		return err
	}
	if _, err := t.pc.AddTrack(audio); err != nil {
		return err
	}
	t.audioTrack = audio

	if video {
		videoTrack, err := webrtc.NewTrackLocalStaticSample(
			webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeVP8},
			"video", t.channel,
		)
		if err != nil {
			return err
		}
		if _, err := t.pc.AddTrack(videoTrack); err != nil {
			return err
		}
		t.videoTrack = videoTrack
	}
	return nil
}

// Leave closes the peer connection and drops track references and SDK
// handlers. Idempotent.
func (t *PionTransport) Leave() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.connected {
		return nil
	}
	t.connected = false
	t.audioTrack = nil
	t.videoTrack = nil
	t.channel = ""
	if t.pc != nil {
		t.pc.OnICEConnectionStateChange(func(webrtc.ICEConnectionState) {})
		t.pc.OnTrack(func(*webrtc.TrackRemote, *webrtc.RTPReceiver) {})
		err := t.pc.Close()
		t.pc = nil
		return err
	}
	return nil
}

func (t *PionTransport) Connected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.connected
}
