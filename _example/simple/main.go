package main

import (
	"log"
	"os"
	"os/signal"

	"github.com/wavebird/concord/gateway"
	"github.com/wavebird/concord/session"
)

// To run, do `BOT_TOKEN="TOKEN HERE" go run .`

func main() {
	token := os.Getenv("BOT_TOKEN")
	if token == "" {
		log.Fatalln("No $BOT_TOKEN given.")
	}

	s, err := session.Connect("Bot "+token, func(s *session.Session) error {
		// Handlers registered here are live before the Identify goes out.
		s.AddHandler(func(m *gateway.MessageCreateEvent) {
			log.Println(m.Author.Username, "said:", m.Content)

			if m.Content == "!ping" {
				if _, err := s.SendMessage(m.ChannelID, "pong"); err != nil {
					log.Println("failed to send pong:", err)
				}
			}
		})

		return nil
	})
	if err != nil {
		log.Fatalln("failed to connect:", err)
	}
	defer s.Close()

	log.Println("started as", s.State.Self().Username)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt)
	<-sig
}
