package web

import (
	"log"

	"github.com/robfig/cron/v3"
)

// StartSessionCleanup schedules expired session and notice cleanup every 15 minutes
// and periodic pruning of the post rate limiter.
func (s *WebServer) StartSessionCleanup() error {
	s.cron = cron.New()
	if _, err := s.cron.AddFunc("@every 15m", s.cleanupExpiredSessions); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc("@hourly", s.limiter.Cleanup); err != nil {
		return err
	}
	s.cron.Start()
	log.Println("[WEB]: Started session cleanup background task")
	return nil
}

func (s *WebServer) cleanupExpiredSessions() {
	n, err := s.DB.CleanupExpiredSessions()
	if err != nil {
		log.Printf("[WEB]: Error cleaning up expired sessions: %v", err)
		return
	}
	if n > 0 {
		log.Printf("[WEB]: Cleaned up %d expired sessions", n)
	}

	active, err := s.DB.ActiveSessionIDs()
	if err != nil {
		log.Printf("[WEB]: Error listing active sessions: %v", err)
		return
	}
	if dropped := PruneNotices(active); dropped > 0 {
		log.Printf("[WEB]: Dropped notices of %d ended sessions", dropped)
	}
}
