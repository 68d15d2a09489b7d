package blob

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDeterministicKeys(t *testing.T) {
	t.Run("slashes in entity ids are flattened", func(t *testing.T) {
		require.Equal(t, "2026_1111/thumbnail/2026_1111_profile.jpg", ThumbnailKey("2026/1111"))
		require.Equal(t, "2026_1111/others/2026_1111_63213.jpg", PhotoKey("2026/1111", "63213"))
	})

	t.Run("same inputs always map to the same key", func(t *testing.T) {
		require.Equal(t, ThumbnailKey("2026/1111"), ThumbnailKey("2026/1111"))
		require.Equal(t, PhotoKey("2026/1111", "1"), PhotoKey("2026/1111", "1"))
	})

	t.Run("different pictures get distinct keys", func(t *testing.T) {
		require.NotEqual(t, PhotoKey("2026/1111", "1"), PhotoKey("2026/1111", "2"))
		require.NotEqual(t, PhotoKey("2026/1111", "1"), PhotoKey("2026/2222", "1"))
	})
}

func TestPublicURL(t *testing.T) {
	store := &Store{bucket: "notice-images", publicURL: "http://localhost:9000"}

	require.Equal(t,
		"http://localhost:9000/notice-images/2026_1111/thumbnail/2026_1111_profile.jpg",
		store.URL(ThumbnailKey("2026/1111")))
	require.Empty(t, store.URL(""), "records without a thumbnail render no URL")
}
