package game

import (
	"fmt"
	"math/rand/v2"
	"os"

	"gopkg.in/yaml.v3"
)

// defaultCaptions is the built-in corpus, used when no captions file is
// configured.
var defaultCaptions = []string{
	"When the deploy finally works on Friday at 5pm",
	"Me pretending to listen in the all-hands meeting",
	"That feeling when someone else volunteers first",
	"When the wifi comes back after two minutes",
	"Monday morning in one picture",
	"When you find money in your winter coat",
	"Trying to look busy when the boss walks by",
	"When your food arrives at the restaurant",
	"Me after saying 'just one more episode'",
	"When the group chat finally agrees on a place",
	"Explaining my job to my grandparents",
	"When someone spoils the show you just started",
	"Leaving work on the last day before vacation",
	"When autocorrect betrays you mid-argument",
	"Realizing you waved back at someone waving behind you",
	"When the playlist plays exactly the right song",
	"Me reading the terms and conditions",
	"When your phone hits 1% far from a charger",
	"Pretending the burnt dinner was intentional",
	"When you finally remember where you parked",
}

type captionsFile struct {
	Captions []struct {
		Caption string `yaml:"caption"`
	} `yaml:"captions"`
}

// Deck is a caption corpus that rounds draw from without replacement.
type Deck struct {
	captions []string
}

// NewDeck builds a deck from the built-in corpus.
func NewDeck() *Deck {
	return &Deck{captions: defaultCaptions}
}

// NewDeckFromFile builds a deck from a YAML captions file.
func NewDeckFromFile(path string) (*Deck, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read captions file: %w", err)
	}

	var file captionsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse captions file: %w", err)
	}
	if len(file.Captions) == 0 {
		return nil, fmt.Errorf("captions file %s holds no captions", path)
	}

	captions := make([]string, len(file.Captions))
	for i, c := range file.Captions {
		captions[i] = c.Caption
	}
	return &Deck{captions: captions}, nil
}

// Size returns how many captions the deck holds.
func (d *Deck) Size() int {
	return len(d.captions)
}

// Draw returns n distinct captions in random order. Asking for more
// captions than the corpus holds is a configuration error.
func (d *Deck) Draw(n int) ([]string, error) {
	if n > len(d.captions) {
		return nil, fmt.Errorf("caption corpus holds %d captions, %d rounds requested", len(d.captions), n)
	}

	shuffled := make([]string, len(d.captions))
	copy(shuffled, d.captions)
	rand.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	return shuffled[:n], nil
}
