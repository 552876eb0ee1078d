// Package motion accumulates roll and pitch readings from the wearable
// sensor over a fixed listening window and decides between two outcomes
// when the window closes.
//
// A message is accepted when it contains "roll = <number>, pitch = <number>"
// anywhere in the text. When the window closes, the average roll is
// compared with the threshold: below it selects OutcomeA; equal or above
// selects OutcomeB. A window that saw no valid messages yields NoDecision.
//
// The accumulator never spawns anything itself; listeners decide what an
// outcome means.
package motion
