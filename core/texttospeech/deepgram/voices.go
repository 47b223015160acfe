package deepgram

import "slices"

type Voice string

const (
	VoiceThalia    Voice = "aura-2-thalia-en"
	VoiceAndromeda Voice = "aura-2-andromeda-en"
	VoiceHelena    Voice = "aura-2-helena-en"
	VoiceApollo    Voice = "aura-2-apollo-en"
	VoiceArcas     Voice = "aura-2-arcas-en"
	VoiceOrion     Voice = "aura-2-orion-en"

	defaultVoice = VoiceThalia
)

func GetAvailableVoices() []Voice {
	return []Voice{VoiceThalia, VoiceAndromeda, VoiceHelena, VoiceApollo, VoiceArcas, VoiceOrion}
}

func isAvailable(voice Voice) bool {
	return slices.Contains(GetAvailableVoices(), voice)
}
