package chatdet

import (
	"fmt"
	"io"
)

// Train builds a single model labelled label from one or more readers.
func Train(cfg ModelConfig, label string, rdr ...io.Reader) (*Model, error) {
	if len(rdr) < 1 {
		return nil, fmt.Errorf("chatdet: requires at least one reader")
	}
	tr, err := NewTrainer(cfg)
	if err != nil {
		return nil, err
	}
	for _, r := range rdr {
		if err := tr.Add(label, r); err != nil {
			return nil, err
		}
	}
	return tr.Models()[label], nil
}
