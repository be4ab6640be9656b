// Package prompts holds the shared ranking prompt. Every provider sends the
// same instructions so cached responses stay interchangeable across models.
package prompts

import "strings"

const System = "You are an expert video editor and social media strategist. " +
	"Analyze video transcripts and identify the most viral-worthy, " +
	"engaging segments for YouTube Shorts. Respond with valid JSON only."

const userTemplate = `Analyze this SRT transcript and identify the most engaging 15-60 second segments for YouTube Shorts.

SRT Transcript:
%TRANSCRIPT%

Return ONLY valid JSON in this exact format:
{"clips":[{"start_time":"HH:MM:SS","end_time":"HH:MM:SS","title":"Short descriptive title","reason":"Why this clip is engaging"}]}

Rules:
- Each clip MUST be between 15 and 60 seconds long
- Identify 3-5 of the most engaging moments
- Prefer segments with strong hooks, surprising statements, emotional peaks, or self-contained stories
- start_time and end_time MUST use HH:MM:SS format
- Make sure the titles are short and engaging
- Make sure the sentences and logic a cohesive for a self-contained clip
- Return ONLY the JSON object, nothing else`

// User renders the user-role message for one transcript.
func User(transcript string) string {
	return strings.ReplaceAll(userTemplate, "%TRANSCRIPT%", transcript)
}

// Combined is the single-message form for providers without a system role.
func Combined(transcript string) string {
	return System + "\n\n" + User(transcript)
}
