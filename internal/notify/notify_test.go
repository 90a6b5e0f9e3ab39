package notify

import (
	"testing"

	"github.com/sanamente/catalogd/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingTarget struct {
	events []string
}

func (r *recordingTarget) ProductChanged(action, id string) {
	r.events = append(r.events, action+":"+id)
}

func TestMultiFansOut(t *testing.T) {
	a := &recordingTarget{}
	b := &recordingTarget{}
	multi := NewMulti(a, b)

	multi.ProductChanged("created", "p1")
	multi.ProductChanged("deleted", "p2")

	assert.Equal(t, []string{"created:p1", "deleted:p2"}, a.events)
	assert.Equal(t, b.events, a.events)
}

func TestMultiEmpty(t *testing.T) {
	assert.NotPanics(t, func() { NewMulti().ProductChanged("created", "p1") })
}

func TestMailMessage(t *testing.T) {
	n := NewMailNotifier(config.SmtpConfig{
		Host: "smtp.example.com",
		Port: 587,
		From: "catalogd@sanamente.local",
		To:   "ops@sanamente.local",
	})

	m := n.message("deleted", "p1")
	require.Equal(t, []string{"catalogd@sanamente.local"}, m.GetHeader("From"))
	require.Equal(t, []string{"ops@sanamente.local"}, m.GetHeader("To"))
	assert.Equal(t, []string{"[catalogd] product deleted: p1"}, m.GetHeader("Subject"))
}
