package dataset

import (
	"context"
	"fmt"
	"log"

	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2/clientcredentials"

	"chart-race/internal/models"
)

const (
	spotifyPageSize  = 50
	spotifyBatchSize = 50 // GetTracks accepts at most 50 ids
)

// SpotifyCatalogue reads an artist's albums and singles through the Web API
// with the client-credentials flow.
type SpotifyCatalogue struct {
	client *spotify.Client
}

func NewSpotifyCatalogue(ctx context.Context, clientID, clientSecret string) (*SpotifyCatalogue, error) {
	config := &clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     spotifyauth.TokenURL,
	}
	token, err := config.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("spotify token: %w", err)
	}

	httpClient := spotifyauth.New().Client(ctx, token)
	return &SpotifyCatalogue{client: spotify.New(httpClient)}, nil
}

func (s *SpotifyCatalogue) ArtistTracks(ctx context.Context, artistID string) ([]models.Track, error) {
	albums, err := s.artistAlbums(ctx, spotify.ID(artistID))
	if err != nil {
		return nil, err
	}

	source := "spotify:artist:" + artistID
	var tracks []models.Track
	for _, album := range albums {
		ids, err := s.albumTrackIDs(ctx, album.ID)
		if err != nil {
			return nil, fmt.Errorf("album %s: %w", album.Name, err)
		}

		for start := 0; start < len(ids); start += spotifyBatchSize {
			end := min(start+spotifyBatchSize, len(ids))
			full, err := s.client.GetTracks(ctx, ids[start:end])
			if err != nil {
				return nil, fmt.Errorf("album %s tracks: %w", album.Name, err)
			}
			converted, err := toTracks(album, full, source, len(tracks))
			if err != nil {
				log.Printf("⚠️ Skipping album %s: %v", album.Name, err)
				break
			}
			tracks = append(tracks, converted...)
		}
	}

	log.Printf("🎧 Spotify: %d tracks across %d releases for %s", len(tracks), len(albums), artistID)
	return tracks, nil
}

func (s *SpotifyCatalogue) artistAlbums(ctx context.Context, artistID spotify.ID) ([]spotify.SimpleAlbum, error) {
	var albums []spotify.SimpleAlbum
	offset := 0
	types := []spotify.AlbumType{spotify.AlbumTypeAlbum, spotify.AlbumTypeSingle}

	for {
		page, err := s.client.GetArtistAlbums(ctx, artistID, types,
			spotify.Limit(spotifyPageSize), spotify.Offset(offset))
		if err != nil {
			return nil, fmt.Errorf("artist albums: %w", err)
		}
		albums = append(albums, page.Albums...)
		if len(page.Albums) < spotifyPageSize {
			break
		}
		offset += spotifyPageSize
	}
	return albums, nil
}

func (s *SpotifyCatalogue) albumTrackIDs(ctx context.Context, albumID spotify.ID) ([]spotify.ID, error) {
	var ids []spotify.ID
	offset := 0

	for {
		page, err := s.client.GetAlbumTracks(ctx, albumID,
			spotify.Limit(spotifyPageSize), spotify.Offset(offset))
		if err != nil {
			return nil, err
		}
		for _, t := range page.Tracks {
			ids = append(ids, t.ID)
		}
		if len(page.Tracks) < spotifyPageSize {
			break
		}
		offset += spotifyPageSize
	}
	return ids, nil
}

// toTracks converts full track objects of one album. Spotify only dates the
// album, so every track inherits the album release date.
func toTracks(album spotify.SimpleAlbum, full []*spotify.FullTrack, source string, position int) ([]models.Track, error) {
	released, err := ParseReleaseDate(album.ReleaseDate)
	if err != nil {
		return nil, err
	}

	tracks := make([]models.Track, 0, len(full))
	for _, t := range full {
		if t == nil {
			continue
		}
		tracks = append(tracks, models.Track{
			TrackName:   t.Name,
			ReleaseDate: released,
			Popularity:  float64(t.Popularity),
			Source:      source,
			Position:    position + len(tracks),
		})
	}
	return tracks, nil
}
