package concord_test

import (
	"log"
	"os"
	"os/signal"

	"github.com/wavebird/concord/gateway"
	"github.com/wavebird/concord/session"
)

func Example() {
	s, err := session.Connect("Bot "+os.Getenv("DISCORD_TOKEN"),
		func(s *session.Session) error {
			s.AddHandler(func(m *gateway.MessageCreateEvent) {
				log.Printf("%s: %s", m.Author.Username, m.Content)
			})
			return nil
		})
	if err != nil {
		log.Fatalln("cannot connect:", err)
	}
	defer s.Close()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt)
	<-sig
}
