package audio

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// PlaylistFormat represents supported playlist file formats.
//
// Each format has different features and compatibility:
//   - M3U: Simple text format, widely supported
//   - PLS: INI-style format, used by Winamp
//   - WPL: XML format, Windows Media Player
//   - ZPL: XML format, Zune/Groove Music
type PlaylistFormat int

const (
	// PlaylistM3U creates .m3u files (most compatible).
	PlaylistM3U PlaylistFormat = iota

	// PlaylistPLS creates .pls files (Winamp/SHOUTcast format).
	PlaylistPLS

	// PlaylistWPL creates .wpl files (Windows Media Player).
	PlaylistWPL

	// PlaylistZPL creates .zpl files (Zune/Groove Music).
	PlaylistZPL
)

// ParsePlaylistFormat maps "m3u", "pls", "wpl" and "zpl" to a format.
func ParsePlaylistFormat(s string) (PlaylistFormat, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "m3u", "m3u8":
		return PlaylistM3U, nil
	case "pls":
		return PlaylistPLS, nil
	case "wpl":
		return PlaylistWPL, nil
	case "zpl":
		return PlaylistZPL, nil
	default:
		return 0, fmt.Errorf("unknown playlist format %q", s)
	}
}

// Extension returns the file extension without the dot.
func (f PlaylistFormat) Extension() string {
	switch f {
	case PlaylistPLS:
		return "pls"
	case PlaylistWPL:
		return "wpl"
	case PlaylistZPL:
		return "zpl"
	default:
		return "m3u"
	}
}

// Playlist is an ordered list of acquired files.
type Playlist struct {
	// Title names the collection (album, playlist or show).
	Title string

	Entries []PlaylistEntry
}

// PlaylistEntry is one acquired file.
type PlaylistEntry struct {
	Path     string
	Artist   string
	Title    string
	Album    string
	Duration time.Duration
}

// PlaylistCreator generates playlist files in various formats.
//
// Entry paths are written relative to the playlist (just the file name),
// so the playlist must live in the same directory as the files.
//
// Example:
//
//	creator := NewPlaylistCreator(PlaylistM3U, true)
//	content := creator.CreatePlaylist(list)
//
//	// Result:
//	// #EXTM3U
//	// #EXTINF:180,Artist - Song Title
//	// 01 - Song Title.mp3
type PlaylistCreator struct {
	format   PlaylistFormat
	extended bool // For M3U: include EXTINF lines with duration/title
}

// NewPlaylistCreator creates a new PlaylistCreator.
//
// extended only affects M3U output.
func NewPlaylistCreator(format PlaylistFormat, extended bool) *PlaylistCreator {
	return &PlaylistCreator{
		format:   format,
		extended: extended,
	}
}

// Format returns the format the creator writes.
func (p *PlaylistCreator) Format() PlaylistFormat { return p.format }

// CreatePlaylist renders the playlist content.
func (p *PlaylistCreator) CreatePlaylist(list *Playlist) string {
	switch p.format {
	case PlaylistPLS:
		return p.createPLS(list)
	case PlaylistWPL:
		return p.createSMIL(list, "<?wpl version=\"1.0\"?>", false)
	case PlaylistZPL:
		return p.createSMIL(list, "<?zpl version=\"2.0\"?>", true)
	default:
		return p.createM3U(list)
	}
}

func (p *PlaylistCreator) createM3U(list *Playlist) string {
	var sb strings.Builder

	if p.extended {
		sb.WriteString("#EXTM3U\n")
	}

	for _, e := range list.Entries {
		if p.extended {
			fmt.Fprintf(&sb, "#EXTINF:%d,%s - %s\n", int(e.Duration.Seconds()), e.Artist, e.Title)
		}
		sb.WriteString(filepath.Base(e.Path) + "\n")
	}

	return sb.String()
}

// createPLS generates an INI-style PLS playlist:
//
//	[playlist]
//	File1=filename1.mp3
//	Title1=Artist - Song Title
//	Length1=180
//	NumberOfEntries=1
//	Version=2
func (p *PlaylistCreator) createPLS(list *Playlist) string {
	var sb strings.Builder

	sb.WriteString("[playlist]\n")
	for i, e := range list.Entries {
		idx := i + 1
		fmt.Fprintf(&sb, "File%d=%s\n", idx, filepath.Base(e.Path))
		fmt.Fprintf(&sb, "Title%d=%s - %s\n", idx, e.Artist, e.Title)
		fmt.Fprintf(&sb, "Length%d=%d\n", idx, int(e.Duration.Seconds()))
	}
	fmt.Fprintf(&sb, "NumberOfEntries=%d\n", len(list.Entries))
	sb.WriteString("Version=2\n")

	return sb.String()
}

// createSMIL generates the XML playlists. ZPL adds per-entry metadata.
func (p *PlaylistCreator) createSMIL(list *Playlist, declaration string, detailed bool) string {
	var sb strings.Builder

	sb.WriteString(declaration + "\n")
	sb.WriteString("<smil>\n")
	sb.WriteString("  <head>\n")
	fmt.Fprintf(&sb, "    <title>%s</title>\n", escapeXML(list.Title))
	if detailed {
		sb.WriteString("    <meta name=\"Generator\" content=\"tunegrab\"/>\n")
		fmt.Fprintf(&sb, "    <meta name=\"ItemCount\" content=\"%d\"/>\n", len(list.Entries))
	}
	sb.WriteString("  </head>\n")
	sb.WriteString("  <body>\n")
	sb.WriteString("    <seq>\n")

	for _, e := range list.Entries {
		if !detailed {
			fmt.Fprintf(&sb, "      <media src=\"%s\"/>\n", escapeXML(filepath.Base(e.Path)))
			continue
		}
		fmt.Fprintf(&sb, "      <media src=\"%s\" albumTitle=\"%s\" trackTitle=\"%s\" trackArtist=\"%s\" duration=\"%d\"/>\n",
			escapeXML(filepath.Base(e.Path)),
			escapeXML(e.Album),
			escapeXML(e.Title),
			escapeXML(e.Artist),
			e.Duration.Milliseconds())
	}

	sb.WriteString("    </seq>\n")
	sb.WriteString("  </body>\n")
	sb.WriteString("</smil>\n")

	return sb.String()
}

// escapeXML escapes & < > " and '.
func escapeXML(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	s = strings.ReplaceAll(s, "\"", "&quot;")
	s = strings.ReplaceAll(s, "'", "&apos;")
	return s
}
