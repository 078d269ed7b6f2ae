// Command mel2wav converts a mel spectrogram (.npy) back to an audio file (WAV).
//
// The mel power spectrogram is first mapped back to a linear magnitude
// spectrogram by non-negative least squares against the mel filter bank, then
// the phase is estimated with the fast Griffin-Lim algorithm.
//
// Usage:
//
//	mel2wav [flags] <mel.npy>
//
// The input array is shaped [n_mels × frames]. The output WAV file is named
// <mel>.wav unless -o is given. -like ref.wav copies the sample rate and length
// of an existing recording, -stft and -png save the recovered magnitude
// spectrogram. Run with -h for the full flag list.
package main
