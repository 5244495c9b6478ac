// Package overview computes execution statistics over the cases of a test
// run. It is pure and in memory: callers load axes and run cases from the
// store and pass them in.
//
// Stats follow three ratios. Completion is executed over total, quality is
// passed over executed, and scope validated is passed over total; each is 0
// when its denominator is 0. Only PASS and FAIL count as executed.
//
// Breakdown groups cases into a tree by an ordered list of axis levels.
// Children follow the axis-defined value order; values the axis does not
// define come after, alphabetically. Node keys have the form
// "1=Chrome|2=Prod" and double as selection keys for Filter.
package overview
