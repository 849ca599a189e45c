// Package testutil provides spies for exercising engines deterministically:
// a stubbed reducer that records its calls, an effect handler whose effects
// are completed by the test, a value spy over state streams, and a decoration
// spy that records hook order.
package testutil
