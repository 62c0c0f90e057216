package media

import "testing"

func TestIsSupportedExt(t *testing.T) {
	for _, ext := range []string{".mp3", ".WAV", ".flac", ".ogg"} {
		if !IsSupportedExt(ext) {
			t.Fatalf("expected %s to be supported", ext)
		}
	}
	for _, ext := range []string{".aac", ".m4a", ".txt", ""} {
		if IsSupportedExt(ext) {
			t.Fatalf("expected %s to be unsupported", ext)
		}
	}
}

func TestSupportedExtsList(t *testing.T) {
	if got := SupportedExtsList(); got != ".flac, .mp3, .oga, .ogg, .wav" {
		t.Fatalf("SupportedExtsList() = %q", got)
	}
}

func TestIsPlaylistExt(t *testing.T) {
	if !IsPlaylistExt(".M3U8") || IsPlaylistExt(".mp3") {
		t.Fatal("playlist extension detection is wrong")
	}
}
