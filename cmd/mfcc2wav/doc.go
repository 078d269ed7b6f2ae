// Command mfcc2wav converts MFCC features (.npy) back to an audio file (WAV).
//
// The cepstral coefficients are turned into a mel power spectrogram with the
// inverse DCT and dB-to-power conversion. The rest of the pipeline is the same
// as mel2wav. The reconstruction is coarse: MFCCs keep only the spectral
// envelope, so the result sounds like a whispered version of the original.
//
// Usage:
//
//	mfcc2wav [flags] <mfcc.npy>
//
// The input array is shaped [n_mfcc × frames]. -n-mels, -dct-type, -norm and
// -ref must match the settings used to compute the features. -mel saves the
// intermediate mel power spectrogram. Run with -h for the full flag list.
package main
