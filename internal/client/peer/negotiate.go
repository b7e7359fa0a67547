package peer

import "github.com/pion/webrtc/v4"

func (s *Session) setup(tracks []webrtc.TrackLocal) {
	if len(tracks) > 0 {
		s.attach(tracks)
		return
	}
	if s.role != Initiator {
		// The remote offer creates our transceivers.
		return
	}
	for _, kind := range []webrtc.RTPCodecType{webrtc.RTPCodecTypeAudio, webrtc.RTPCodecTypeVideo} {
		if err := s.native.AddReceiver(kind); err != nil {
			s.log.Error().Err(err).Str("kind", kind.String()).Msg("add receiver")
		}
	}
	s.log.Info().Msg("created receive-only")
}

func (s *Session) attach(tracks []webrtc.TrackLocal) {
	if s.tracksAttached || len(tracks) == 0 {
		return
	}
	added := 0
	for _, t := range tracks {
		if err := s.native.AddTrack(t); err != nil {
			s.log.Error().Err(err).Str("track", t.ID()).Msg("add track")
			continue
		}
		added++
	}
	if added > 0 {
		s.tracksAttached = true
		// Before the first remote offer the answer carries the tracks.
		if s.role == Responder && s.state != StateCreated {
			s.renegotiate = true
		}
		s.log.Info().Int("tracks", added).Msg("local tracks attached")
	}
}

// negotiate runs when the native layer reports that negotiation is
// needed. While an offer is outstanding the native layer raises the event
// again once signaling is stable, so it is safe to skip here. A responder
// offers only for tracks it attached after answering: transceivers created
// by the remote offer keep raising the event after every answer.
func (s *Session) negotiate() {
	switch {
	case s.state == StateClosed, s.state == StateHaveLocalOffer:
		return
	case s.role == Responder && !s.renegotiate:
		return
	}

	offer, err := s.native.CreateOffer()
	if err != nil {
		s.log.Error().Err(err).Msg("create offer")
		return
	}
	if err := s.native.SetLocalDescription(offer); err != nil {
		s.log.Error().Err(err).Msg("set local offer")
		return
	}
	s.state = StateHaveLocalOffer
	s.renegotiate = false
	if err := s.sig.SendOffer(s.remote, offer); err != nil {
		s.log.Error().Err(err).Msg("send offer")
		return
	}
	s.log.Info().Msg("offer sent")
}

func (s *Session) offer(sdp webrtc.SessionDescription) {
	if s.state == StateHaveLocalOffer {
		if s.role == Initiator {
			s.log.Warn().Msg("offer collision, keeping ours")
			return
		}
		if err := s.native.SetLocalDescription(webrtc.SessionDescription{Type: webrtc.SDPTypeRollback}); err != nil {
			s.log.Error().Err(err).Msg("rollback local offer")
			return
		}
		s.state = s.settled()
		// The rolled back offer still has to go out once stable.
		s.renegotiate = s.tracksAttached
		s.log.Info().Msg("offer collision, rolled back")
	}

	if err := s.native.SetRemoteDescription(sdp); err != nil {
		s.log.Error().Err(err).Msg("set remote offer")
		return
	}
	s.remoteSet()

	answer, err := s.native.CreateAnswer()
	if err != nil {
		s.log.Error().Err(err).Msg("create answer")
		return
	}
	if err := s.native.SetLocalDescription(answer); err != nil {
		s.log.Error().Err(err).Msg("set local answer")
		return
	}
	if err := s.sig.SendAnswer(s.remote, answer); err != nil {
		s.log.Error().Err(err).Msg("send answer")
		return
	}
	s.log.Info().Msg("answer sent")
}

func (s *Session) answer(sdp webrtc.SessionDescription) {
	if s.state != StateHaveLocalOffer {
		s.log.Warn().Str("state", s.state.String()).Msg("unexpected answer ignored")
		return
	}
	if err := s.native.SetRemoteDescription(sdp); err != nil {
		s.log.Error().Err(err).Msg("set remote answer")
		return
	}
	s.remoteSet()
	s.log.Info().Msg("answer applied")
}

// remoteSet records a successfully applied remote description and flushes
// candidates that arrived before it.
func (s *Session) remoteSet() {
	pending := s.gate.Open()
	s.state = s.settled()
	for _, c := range pending {
		s.applyCandidate(c)
	}
	if len(pending) > 0 {
		s.log.Debug().Int("candidates", len(pending)).Msg("drained buffered candidates")
	}
}

// settled is the state of a session with no offer outstanding.
func (s *Session) settled() State {
	switch {
	case s.connected:
		return StateConnected
	case s.gate.open:
		return StateHaveRemoteDescription
	}
	return StateCreated
}

func (s *Session) candidate(c webrtc.ICECandidateInit) {
	if !s.gate.Offer(c) {
		s.log.Debug().Int("pending", s.gate.Pending()).Msg("candidate buffered")
		return
	}
	s.applyCandidate(c)
}

func (s *Session) applyCandidate(c webrtc.ICECandidateInit) {
	if err := s.native.AddICECandidate(c); err != nil {
		s.log.Error().Err(err).Str("candidate", c.Candidate).Msg("add candidate")
	}
}

func (s *Session) sendLocalCandidate(c webrtc.ICECandidateInit) {
	if err := s.sig.SendCandidate(s.remote, c); err != nil {
		s.log.Warn().Err(err).Msg("send candidate")
	}
}

func (s *Session) connectionState(st webrtc.PeerConnectionState) {
	s.log.Info().Str("pc_state", st.String()).Msg("connection state")
	switch st {
	case webrtc.PeerConnectionStateConnected:
		s.connected = true
		if s.state != StateHaveLocalOffer {
			s.state = StateConnected
		}
	case webrtc.PeerConnectionStateDisconnected, webrtc.PeerConnectionStateFailed:
		s.connected = false
		if s.state == StateConnected {
			s.state = StateHaveRemoteDescription
		}
	}
}
