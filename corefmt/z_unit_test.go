package corefmt

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"testing"
)

func TestBase64URL(t *testing.T) {
	in := []byte{0xff, 0x00, 0x10, 0xfe}
	out, err := DecodeBase64URL(EncodeBase64URL(in))
	if err != nil || !bytes.Equal(in, out) {
		t.Fatalf("base64url roundtrip failed: %v %v", out, err)
	}
	if _, err := DecodeBase64URL("***"); err == nil {
		t.Fatalf("expected error for invalid base64url")
	}
}

func TestBlobFrameStream(t *testing.T) {
	var buf bytes.Buffer
	payloads := [][]byte{[]byte("first"), {}, bytes.Repeat([]byte{7}, 300)}
	for _, p := range payloads {
		if err := WriteBlobFrame(&buf, p); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	br := bufio.NewReader(&buf)
	for i, want := range payloads {
		got, err := ReadBlobFrame(br, 0)
		if err != nil {
			t.Fatalf("read frame %d: %v", i, err)
		}
		if !bytes.Equal(got, want) {
			t.Fatalf("frame %d mismatch", i)
		}
	}
	if _, err := ReadBlobFrame(br, 0); !errors.Is(err, io.EOF) {
		t.Fatalf("expected io.EOF at end of stream, got %v", err)
	}
}

func TestBlobFrameLimits(t *testing.T) {
	frame := EncodeBlobFrame([]byte("hello"))
	if _, err := ReadBlobFrame(bufio.NewReader(bytes.NewReader(frame)), 2); err == nil {
		t.Fatalf("expected maxBytes error")
	}
	if _, err := DecodeBlobFrame(frame[:3]); err == nil {
		t.Fatalf("expected truncated frame error")
	}
	got, err := DecodeBlobFrame(frame)
	if err != nil || string(got) != "hello" {
		t.Fatalf("decode got %q %v", got, err)
	}
}
