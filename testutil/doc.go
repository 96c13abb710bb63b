// Package testutil provides fakes shared by the engine, controller and API
// tests: a controllable analysis service, a manual clock, media fixtures and
// component lifecycle helpers.
//
// A typical engine test wires the fakes like this:
//
//	clock := testutil.NewClock(time.Time{})
//	faces := testutil.NewService("face-detection").Respond(testutil.Succeed(map[string]any{"faces": 3}))
//	media := testutil.MediaStorage(t, "input/interview1.mp4")
package testutil
