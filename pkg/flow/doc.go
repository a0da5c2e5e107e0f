// Package flow implements the step controller: a per-session state machine
// that validates one step at a time, merges valid values into the cumulative
// submission state, and hands the final state to a dispatcher. It knows
// nothing about HTML or terminals; renderers read a StepView and post raw
// values back.
package flow
