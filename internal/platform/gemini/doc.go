// Package gemini implements the generation ports against Google's Generative Language
// REST API.
//
// This package is an infrastructure adapter: it translates between the domain
// requests of the generation package and the upstream wire format without exposing
// the details of the external service to the rest of the application.
//
// Key components:
//
// 1. Response extraction:
//   - ExtractText and ExtractImage walk an arbitrary JSON document with an ordered
//     list of gjson matchers and return the first usable value
//   - Several response generations of the API (and compatible proxies) are tolerated
//
// 2. Enhancer:
//   - Implements generation.PromptEnhancer
//   - Rewrites a short brief into a detailed photography prompt
//
// 3. ImageGenerator:
//   - Implements generation.ImageGenerator
//   - Decodes inline image payloads or downloads remote ones behind an SSRF guard
//
// 4. ModelLister:
//   - Implements generation.ModelLister through the google.golang.org/genai SDK
//
// All REST calls go through httpretry.Client, which owns retries, backoff and
// status classification.
package gemini
