package gateway

import "testing"

func TestReplayBuffer_Since(t *testing.T) {
	rb := NewReplayBuffer(10)
	for i := int64(1); i <= 5; i++ {
		rb.Push(i, []byte{byte('0' + i)})
	}

	got := rb.Since(2)
	if len(got) != 3 {
		t.Fatalf("Since(2): got %d frames, want 3", len(got))
	}
	if string(got[0]) != "3" || string(got[2]) != "5" {
		t.Fatalf("got %q", got)
	}
	if len(rb.Since(5)) != 0 {
		t.Fatal("nothing is newer than the last seq")
	}
}

func TestReplayBuffer_Wraparound(t *testing.T) {
	rb := NewReplayBuffer(3)
	for i := int64(1); i <= 7; i++ {
		rb.Push(i, []byte{byte('0' + i)})
	}
	if rb.Len() != 3 {
		t.Fatalf("Len: got %d", rb.Len())
	}
	got := rb.Since(0)
	if len(got) != 3 || string(got[0]) != "5" || string(got[2]) != "7" {
		t.Fatalf("got %q", got)
	}
}

func TestReplayBuffer_CopiesFrame(t *testing.T) {
	rb := NewReplayBuffer(2)
	frame := []byte("a")
	rb.Push(1, frame)
	frame[0] = 'b'
	if string(rb.Since(0)[0]) != "a" {
		t.Fatal("buffer must not alias the caller's slice")
	}
}
