package services

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
)

// StreamRewardsSSE streams newly minted rewards for the authenticated user.
// This is the "play a rarity-appropriate notification" signal: the client
// reacts to each event with the sound/animation for the reward's rarity.
func (s *CollectionService) StreamRewardsSSE(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	// SSE headers
	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("X-Accel-Buffering", "no") // nginx

	ledger := s.Ledger

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		ticker := time.NewTicker(2 * time.Second)
		defer ticker.Stop()

		cursor := time.Now()

		// Initial keepalive (comment event)
		w.WriteString(":\n\n")
		if err := w.Flush(); err != nil {
			return
		}

		for {
			select {
			case <-ticker.C:
				newRewards := ledger.RewardsSince(userID, cursor)
				if len(newRewards) == 0 {
					continue
				}
				// The slice is not guaranteed timestamp-ascending (imports can
				// interleave out-of-order rewards), so advance the cursor to the
				// max EarnedAt rather than the last element's.
				for i := range newRewards {
					if at := newRewards[i].EarnedAt.Time(); at.After(cursor) {
						cursor = at
					}
				}

				for i := range newRewards {
					payload, err := json.Marshal(newRewards[i])
					if err != nil {
						log.Printf("SSE marshal error for user %s: %v", userID, err)
						continue
					}
					fmt.Fprintf(w, "event: reward\ndata: %s\n\n", payload)
				}

				if err := w.Flush(); err != nil {
					// Client disconnected
					return
				}

			case <-c.Context().Done():
				return
			}
		}
	})

	return nil
}
