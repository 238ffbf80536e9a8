// Package capture resolves a stream source to a direct media URL and records
// it as a cancellable sequence of fixed-duration audio chunks.
//
// Resolution runs yt-dlp once per refresh window; recording shells out to
// ffmpeg per chunk, producing mono 16kHz PCM WAV suitable for transcription.
// Both subprocesses are killed promptly on cancellation.
package capture
