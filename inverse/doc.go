// Package inverse는 멜 파워 스펙트로그램과 MFCC로부터 근사 오디오를 복원한다.
//
// 파이프라인은 MFCC → 멜 파워 → 선형 크기 스펙트로그램 → 시간 영역 신호의
// 순서로만 흐른다. 멜 투영과 DCT 절단은 정보를 잃는 변환이므로 모든 결과는 근사다.
//
//   - MFCCToMel: 역 DCT 후 dB를 파워로 바꾼다.
//   - MelToSTFT: 멜 필터 뱅크에 대한 음이 아닌 최소제곱 해를 구한 뒤 1/power 제곱한다.
//   - MelToAudio, STFTToAudio: Griffin-Lim으로 위상을 추정해 신호를 만든다.
//   - MFCCToAudio: 위 단계를 이어 붙인 것이다.
//
// 호출마다 필터 뱅크와 중간 행렬을 새로 만들고 버리며, 호출 사이에 공유하는 상태는 없다.
package inverse
