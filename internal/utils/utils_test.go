package utils

import (
	"bufio"
	"bytes"
	"testing"
	"time"
)

func TestSplitJpeg(t *testing.T) {
	// Construct a stream containing: [Garbage] [JPEG] [Garbage]
	// SOI (Start of Image): FF D8
	// EOI (End of Image):   FF D9

	jpegData := []byte{0xFF, 0xD8, 0x01, 0x02, 0x03, 0xFF, 0xD9}

	streamData := []byte{0x00, 0x00} // Garbage at start
	streamData = append(streamData, jpegData...)
	streamData = append(streamData, []byte{0x00, 0x00}...) // Garbage at end

	// Use bufio.Scanner with our custom Split function
	scanner := bufio.NewScanner(bytes.NewReader(streamData))
	scanner.Split(SplitJpeg)

	// Scan() should skip the first garbage bytes and find the JPEG
	if !scanner.Scan() {
		t.Fatal("Expected to find a token, got EOF")
	}

	// Verify the extracted token is exactly the JPEG
	if !bytes.Equal(scanner.Bytes(), jpegData) {
		t.Errorf("Expected %X, got %X", jpegData, scanner.Bytes())
	}

	// Scan() again should return false (EOF) because the trailing garbage is not a JPEG
	if scanner.Scan() {
		t.Error("Expected only one token, found more")
	}
}

func TestSplitJpegBackToBack(t *testing.T) {
	a := []byte{0xFF, 0xD8, 0xAA, 0xFF, 0xD9}
	b := []byte{0xFF, 0xD8, 0xBB, 0xBB, 0xFF, 0xD9}

	scanner := bufio.NewScanner(bytes.NewReader(append(append([]byte{}, a...), b...)))
	scanner.Split(SplitJpeg)

	var frames [][]byte
	for scanner.Scan() {
		frames = append(frames, append([]byte(nil), scanner.Bytes()...))
	}
	if len(frames) != 2 {
		t.Fatalf("Expected 2 frames, got %d", len(frames))
	}
	if !bytes.Equal(frames[1], b) {
		t.Errorf("Expected second frame %X, got %X", b, frames[1])
	}
}

func TestGenerateSessionID(t *testing.T) {
	started := time.Unix(1700000000, 0)

	id := GenerateSessionID("camera:0", "/data/samples", started)
	if len(id) != 64 {
		t.Errorf("Expected 64 hex chars, got %d", len(id))
	}

	// Verify Determinism
	if id2 := GenerateSessionID("camera:0", "/data/samples", started); id != id2 {
		t.Errorf("ID is not deterministic. Got %s, then %s", id, id2)
	}

	// Verify Sensitivity
	if id3 := GenerateSessionID("camera:1", "/data/samples", started); id == id3 {
		t.Error("ID did not change with a different source")
	}
	if id4 := GenerateSessionID("camera:0", "/data/samples", started.Add(time.Second)); id == id4 {
		t.Error("ID did not change with a different start time")
	}
}

func TestFFmpegArgs(t *testing.T) {
	args := FFmpegArgs("clip.mp4")
	if args[len(args)-1] != "-" {
		t.Errorf("Expected output to stdout, got %q", args[len(args)-1])
	}
	found := false
	for i, a := range args {
		if a == "-i" && i+1 < len(args) && args[i+1] == "clip.mp4" {
			found = true
		}
	}
	if !found {
		t.Errorf("Expected -i clip.mp4 in %v", args)
	}
}
