package expense

import (
	"context"
	"errors"
	"io"
	"math/rand"
	"strconv"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/transdovic/backoffice/internal/common"
)

// fakeUploader counts uploads and optionally fails them.
type fakeUploader struct {
	uploads int
	fail    bool
	keys    []string
}

func (f *fakeUploader) Upload(ctx context.Context, key string, body io.Reader, contentType string) error {
	f.uploads++
	if f.fail {
		return common.NewRemoteError("bucket unavailable", nil)
	}
	f.keys = append(f.keys, key)
	return nil
}

func (f *fakeUploader) PublicURL(key string) string {
	return "https://storage.test/" + key
}

func TestTotal_Scenario(t *testing.T) {
	l := NewLineList(nil)
	ctx := context.Background()

	first, err := l.AddLine(ctx, "100.50", "F001-1", nil)
	require.NoError(t, err)
	_, err = l.AddLine(ctx, "49.50", "F001-2", nil)
	require.NoError(t, err)

	assert.True(t, l.Total().Equal(decimal.RequireFromString("150.00")), "got %s", l.Total())

	l.RemoveLine(first.LocalID)
	assert.True(t, l.Total().Equal(decimal.RequireFromString("49.50")), "got %s", l.Total())
}

func TestTotal_FoldCorrectnessUnderInterleaving(t *testing.T) {
	l := NewLineList(nil)
	ctx := context.Background()
	rng := rand.New(rand.NewSource(42))

	expected := decimal.Zero
	var live []DetailLine

	for i := 0; i < 200; i++ {
		if len(live) > 0 && rng.Intn(3) == 0 {
			victim := rng.Intn(len(live))
			l.RemoveLine(live[victim].LocalID)
			expected = expected.Sub(live[victim].Amount)
			live = append(live[:victim], live[victim+1:]...)
			continue
		}
		amount := strconv.Itoa(rng.Intn(10000)) + "." + strconv.Itoa(rng.Intn(90)+10)
		line, err := l.AddLine(ctx, amount, "D-"+strconv.Itoa(i), nil)
		require.NoError(t, err)
		expected = expected.Add(line.Amount)
		live = append(live, line)
	}

	assert.True(t, l.Total().Equal(expected), "total %s, expected %s", l.Total(), expected)
	assert.Equal(t, len(live), l.Len())
}

func TestAddLine_ValidationNeverTouchesNetwork(t *testing.T) {
	up := &fakeUploader{}
	l := NewLineList(up)
	ctx := context.Background()

	tests := []struct {
		name   string
		amount string
		doc    string
	}{
		{"empty amount", "", "F001-1"},
		{"non-numeric amount", "abc", "F001-1"},
		{"negative amount", "-5.00", "F001-1"},
		{"empty document number", "10.00", ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			file := &Attachment{Name: "v.jpg", ContentType: "image/jpeg", Body: strings.NewReader("x")}
			_, err := l.AddLine(ctx, tc.amount, tc.doc, file)

			var ve *common.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, 0, l.Len())
			assert.Equal(t, 0, up.uploads, "validation failure must not issue a network call")
		})
	}
}

func TestAddLine_UploadFailureIsAtomic(t *testing.T) {
	up := &fakeUploader{fail: true}
	l := NewLineList(up)

	_, err := l.AddLine(context.Background(), "10.00", "F001-1",
		&Attachment{Name: "v.jpg", ContentType: "image/jpeg", Body: strings.NewReader("x")})

	var ue *common.UploadError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, "bucket unavailable", ue.Remote.Message)
	assert.Equal(t, 0, l.Len(), "failed upload must not add a line")
	assert.True(t, l.Total().IsZero())
}

func TestAddLine_WithAttachmentResolvesURLBeforeAppend(t *testing.T) {
	up := &fakeUploader{}
	l := NewLineList(up)

	line, err := l.AddLine(context.Background(), "25.00", "F001-9",
		&Attachment{Name: "peaje.jpg", ContentType: "image/jpeg", Body: strings.NewReader("x")})
	require.NoError(t, err)

	require.Len(t, up.keys, 1)
	assert.Equal(t, "https://storage.test/"+up.keys[0], line.VoucherURL)
	assert.Contains(t, up.keys[0], "peaje.jpg")
	assert.Equal(t, 1, l.Len())
}

func TestRemoveLine_IdempotentOnUnknownID(t *testing.T) {
	l := NewLineList(nil)
	_, err := l.AddLine(context.Background(), "10.00", "F001-1", nil)
	require.NoError(t, err)

	l.RemoveLine("no-such-id")
	l.RemoveLine("no-such-id")
	assert.Equal(t, 1, l.Len())
}

func TestLines_InsertionOrderPreserved(t *testing.T) {
	l := NewLineList(nil)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := l.AddLine(ctx, "1.00", "D-"+strconv.Itoa(i), nil)
		require.NoError(t, err)
	}
	lines := l.Lines()
	for i, line := range lines {
		assert.Equal(t, "D-"+strconv.Itoa(i), line.DocumentNumber)
	}
}

func TestAddLine_WrapsUnknownUploadErrors(t *testing.T) {
	l := NewLineList(failingUploader{})

	_, err := l.AddLine(context.Background(), "10.00", "F001-1",
		&Attachment{Name: "v.jpg", Body: strings.NewReader("x")})

	var ue *common.UploadError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, "disk full", ue.Remote.Message)
	assert.Equal(t, 0, l.Len())
}

type failingUploader struct{}

func (failingUploader) Upload(ctx context.Context, key string, body io.Reader, contentType string) error {
	return errors.New("disk full")
}

func (failingUploader) PublicURL(key string) string { return "" }
