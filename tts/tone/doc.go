// Package tone contains the tone-analysis collaborators that rewrite
// narration into style instructions followed by dialogue lines.
// Each analyzer implements tts.ToneAnalyzer.
package tone
