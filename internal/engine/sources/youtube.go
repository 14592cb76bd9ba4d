package sources

// YouTube implementation is split across files by responsibility:
//   youtube_url.go         URL validation, download allow-list, video ID extraction
//   youtube_innertube.go   Innertube API types, constants, and low-level HTTP primitives
//   youtube_transcript.go  caption transcript fetching (watch page, engagement panel, ANDROID player)
//   youtube_metadata.go    title/thumbnail lookup with private and age-gate detection
//   audio.go               yt-dlp audio download into a per-request temp file
//   deepgram.go            speech-to-text for the downloaded audio
