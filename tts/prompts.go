package tts

// DefaultTonePrompt asks the tone model for one instruction line per
// dialogue line, followed by the dialogue itself.
const DefaultTonePrompt = `You will be given a text that contains both narration and dialogue. Dialogue is enclosed in any of the following quotation marks: “”, «», 「」, 『』, or ＂＂. Your task is to analyze the emotional and situational context from the narration.

Then, for each line of dialogue, you MUST create a specific instruction for a Text-to-Speech (TTS) engine.
This instruction should start with a command like "Say in...", "Read with...", or "TTS in...".

The instruction must describe:
- Tone (e.g., a gentle, a stern, a nervous)
- Speaking speed (e.g., a slow, a fast)
- Style (e.g., a formal, a casual)
- Delivery/emotion (e.g., a cheerful, a hesitant)
- Accent or regional nuance (if any is implied)

Each instruction MUST end with a colon ` + "`" + `:` + "`" + `, followed by a NEWLINE, and then the dialogue line on the next line.

🔹 Only output the dialogues with their corresponding instructions.
🔹 Do NOT include narration in your output.
🔹 Do NOT explain your reasoning.
🔹 Maintain the original order of dialogue.
🔹 Do NOT use 'Slow pace'.

---

Example output format:
> Say in a calm and reassuring tone with a soft Kansai dialect, speaking slowly:
「어서 와. 잘 찾아왔네. 여까지 오느라 고생 많았제?」
> Read with a friendly and welcoming tone, at a medium speed, in an informal style:
「서있지 말고 이리 온나. 니 자리 안내해줄게.」
> TTS in a spooky whisper:
"By the pricking of my thumbs... Something wicked this way comes!"
> Read this disclaimer in as fast a voice as possible while remaining intelligible:
"[The author] assumes no responsibility or liability for any errors or omissions in the content of this site. The information contained in this site is provided on an 'as is' basis with no guarantees of completeness, accuracy, usefulness or timeliness."

Now process the following text:
`

// DefaultTranslationPrompt is appended to the tone prompt when a target
// language is selected. {{language}} is replaced with its name.
const DefaultTranslationPrompt = `Additionally, translate all dialogue and tone instructions into {{language}}.
Crucially, **both the instruction and the dialogue must be written entirely in {{language}}**.

The final output format MUST be: [Instruction in {{language}}]: followed by a NEWLINE, and then 「Dialogue in {{language}}」 on the next line.

🔹 Do NOT output the original dialogue.
🔹 Do NOT output instructions in English unless the target language is English.
🔹 Do NOT include narration in your output.
🔹 Do NOT explain your reasoning.

---
Example for target language "Japanese":
> イライラして不機嫌な声でTTSして。:
「また一つコレクションが増えたな。」
> 悲しそうで小さな声で言って。:
「ごめんなさい…」

Example for target language "English":
> Read with a booming, confident voice:
"We will be victorious!"

Now process the following text and provide the output in **{{language}}**:`

var previewStrings = map[string]string{
	"en-US": "The quick brown fox jumps over the lazy dog",
	"en-GB": "Sphinx of black quartz, judge my vow",
	"fr-FR": "Portez ce vieux whisky au juge blond qui fume",
	"de-DE": "Victor jagt zwölf Boxkämpfer quer über den großen Sylter Deich",
	"it-IT": "Pranzo d'acqua fa volti sghembi",
	"es-ES": "Quiere la boca exhausta vid, kiwi, piña y fugaz jamón",
	"es-MX": "Fabio me exige, sin tapujos, que añada cerveza al whisky",
	"ru-RU": "В чащах юга жил бы цитрус? Да, но фальшивый экземпляр!",
	"pt-BR": "Vejo xá gritando que fez show sem playback.",
	"pt-PR": "Todo pajé vulgar faz boquinha sexy com kiwi.",
	"uk-UA": "Фабрикуймо гідність, лящім їжею, ґав хапаймо, з'єднавці чаш!",
	"pl-PL": "Pchnąć w tę łódź jeża lub ośm skrzyń fig",
	"cs-CZ": "Příliš žluťoučký kůň úpěl ďábelské ódy",
	"sk-SK": "Vyhŕňme si rukávy a vyprážajme čínske ryžové cestoviny",
	"hu-HU": "Árvíztűrő tükörfúrógép",
	"tr-TR": "Pijamalı hasta yağız şoföre çabucak güvendi",
	"nl-NL": "De waard heeft een kalfje en een pinkje opgegeten",
	"sv-SE": "Yxskaftbud, ge vårbygd, zinkqvarn",
	"da-DK": "Quizdeltagerne spiste jordbær med fløde, mens cirkusklovnen Walther spillede på xylofon",
	"ja-JP": "いろはにほへと　ちりぬるを　わかよたれそ　つねならむ　うゐのおくやま　けふこえて　あさきゆめみし　ゑひもせす",
	"ko-KR": "가나다라마바사아자차카타파하",
	"zh-CN": "我能吞下玻璃而不伤身体",
	"ro-RO": "Muzicologă în bej vând whisky și tequila, preț fix",
	"bg-BG": "Щъркелите се разпръснаха по цялото небе",
	"el-GR": "Ταχίστη αλώπηξ βαφής ψημένη γη, δρασκελίζει υпέρ νωθρού κυνός",
	"fi-FI": "Voi veljet, miksi juuri teille myin nämä vehkeet?",
	"he-IL": "הקצינים צעקו: \"כל הכבוד לצבא הצבאות!\"",
	"id-ID": "Jangkrik itu memang enak, apalagi kalau digoreng",
	"ms-MY": "Muzik penyanyi wanita itu menggambarkan kehidupan yang penuh dengan duka nestapa",
	"th-TH": "เป็นไงบ้างครับ ผมชอบกินข้าวผัดกระเพราหมูกроб",
	"vi-VN": "Cô bé quàng khăn đỏ đang ngồi trên bãi cỏ xanh",
	"ar-SA": "أَبْجَدِيَّة عَرَبِيَّة",
	"hi-IN": "श्वेता ने श्वेता के श्वेते हाथों में श्वेता का श्वेता चावल पकड़ा",
}

const fallbackPreview = "Neque porro quisquam est qui dolorem ipsum quia dolor sit amet"

// PreviewString returns a sample sentence for a BCP-47 language code.
func PreviewString(lang string) string {
	if s, ok := previewStrings[lang]; ok {
		return s
	}
	return fallbackPreview
}
