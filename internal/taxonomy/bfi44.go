package taxonomy

import "persona-probe/internal/domain"

var traitDefinitions = []TraitDefinition{
	{
		Trait:      domain.TraitOpenness,
		Definition: "Openness to experience describes a person's tendency to be open to new ideas, creative, curious, and appreciative of art and beauty.",
		Generation: Anchors{
			Low:    "A person with a low score is practical and prefers routine.",
			Medium: "A person with a medium score balances curiosity with a preference for the familiar.",
			High:   "A person with a high score is imaginative, curious, and open to new experiences.",
		},
		Classification: Anchors{
			Low:    "A person with a low score is practical, conventional, and prefers routine over new experiences.",
			Medium: "A person with a medium score is open to some new ideas but keeps to familiar ways in most situations.",
			High:   "A person with a high score is imaginative, adventurous, and receptive to a wide range of ideas and emotions.",
		},
	},
	{
		Trait:      domain.TraitConscientiousness,
		Definition: "Conscientiousness refers to the tendency to be organized, responsible, and dependable.",
		Generation: Anchors{
			Low:    "A person with a low score is disorganized and careless.",
			Medium: "A person with a medium score is reasonably organized but not strict about plans.",
			High:   "A person with a high score is disciplined, organized, and achievement-oriented.",
		},
		Classification: Anchors{
			Low:    "A person with a low score is impulsive, disorganized, and less focused on long-term goals.",
			Medium: "A person with a medium score is dependable in important matters but flexible and occasionally careless.",
			High:   "A person with a high score is disciplined, detail-oriented, and reliable in their commitments.",
		},
	},
	{
		Trait:      domain.TraitExtraversion,
		Definition: "Extraversion reflects a person's level of sociability, assertiveness, and emotional expression.",
		Generation: Anchors{
			Low:    "A person with a low score is reserved and solitary.",
			Medium: "A person with a medium score enjoys company at times and also values time alone.",
			High:   "A person with a high score is outgoing, sociable, and energetic.",
		},
		Classification: Anchors{
			Low:    "A person with a low score is reserved, reflective, and prefers solitary activities or small groups.",
			Medium: "A person with a medium score is sociable in familiar settings but does not seek out attention.",
			High:   "A person with a high score is outgoing, energetic, and thrives in social situations.",
		},
	},
	{
		Trait:      domain.TraitAgreeableness,
		Definition: "Agreeableness indicates a person's tendency to be compassionate, cooperative, and considerate of others.",
		Generation: Anchors{
			Low:    "A person with a low score is critical and uncooperative.",
			Medium: "A person with a medium score is cooperative but stands firm when they disagree.",
			High:   "A person with a high score is compassionate, cooperative, and trusting.",
		},
		Classification: Anchors{
			Low:    "A person with a low score is competitive, critical, and may be seen as untrusting or suspicious.",
			Medium: "A person with a medium score is generally considerate but can be skeptical or blunt.",
			High:   "A person with a high score is friendly, helpful, and empathetic towards others.",
		},
	},
	{
		Trait:      domain.TraitNeuroticism,
		Definition: "Neuroticism, often referred to as emotional stability, describes the tendency to experience negative emotions like anxiety, anger, and sadness.",
		Generation: Anchors{
			Low:    "A person with a low score is calm, secure, and emotionally stable.",
			Medium: "A person with a medium score feels stress at times but usually recovers quickly.",
			High:   "A person with a high score is anxious, insecure, and prone to negative emotions.",
		},
		Classification: Anchors{
			Low:    "A person with a low score is calm, secure, and resilient to stress.",
			Medium: "A person with a medium score reacts to stress now and then without being overwhelmed by it.",
			High:   "A person with a high score is emotionally reactive, prone to stress, and may experience frequent mood swings.",
		},
	},
}

var likertOptions = []domain.LikertOption{
	{Phrase: "disagree strongly with the statement", Value: 1},
	{Phrase: "disagree a little with the statement", Value: 2},
	{Phrase: "agree nor disagree with the statement", Value: 3},
	{Phrase: "agree a little with the statement", Value: 4},
	{Phrase: "agree strongly with the statement", Value: 5},
}

var openQuestions = []string{
	"What is your dream career?",
	"What quality do you appreciate the most in a friend?",
	"If you had enough money to retire tomorrow, what would you do for the rest of your life?",
	"What can we learn from children?",
	"If you could play the main character in any movie, what movie would it be?",
	"What does the world need more of?",
}

func item(num int, statement string, trait domain.Trait, polarity domain.Polarity) domain.QuestionnaireItem {
	return domain.QuestionnaireItem{
		Number:    num,
		Statement: "I see myself as someone who " + statement,
		Trait:     trait,
		Polarity:  polarity,
	}
}

const (
	opn = domain.TraitOpenness
	con = domain.TraitConscientiousness
	ext = domain.TraitExtraversion
	agr = domain.TraitAgreeableness
	neu = domain.TraitNeuroticism

	dir = domain.PolarityDirect
	rev = domain.PolarityReverse
)

// bfi44Items sigue la clave de puntuacion estandar del BFI-44, ordenada por numero de item.
var bfi44Items = []domain.QuestionnaireItem{
	item(1, "Is talkative", ext, dir),
	item(2, "Tends to find fault with others", agr, rev),
	item(3, "Does a thorough job", con, dir),
	item(4, "Is depressed, blue", neu, dir),
	item(5, "Is original, comes up with new ideas", opn, dir),
	item(6, "Is reserved", ext, rev),
	item(7, "Is helpful and unselfish with others", agr, dir),
	item(8, "Can be somewhat careless", con, rev),
	item(9, "Is relaxed, handles stress well", neu, rev),
	item(10, "Is curious about many different things", opn, dir),
	item(11, "Is full of energy", ext, dir),
	item(12, "Starts quarrels with others", agr, rev),
	item(13, "Is a reliable worker", con, dir),
	item(14, "Can be tense", neu, dir),
	item(15, "Is ingenious, a deep thinker", opn, dir),
	item(16, "Generates a lot of enthusiasm", ext, dir),
	item(17, "Has a forgiving nature", agr, dir),
	item(18, "Tends to be disorganized", con, rev),
	item(19, "Worries a lot", neu, dir),
	item(20, "Has an active imagination", opn, dir),
	item(21, "Tends to be quiet", ext, rev),
	item(22, "Is generally trusting", agr, dir),
	item(23, "Tends to be lazy", con, rev),
	item(24, "Is emotionally stable, not easily upset", neu, rev),
	item(25, "Is inventive", opn, dir),
	item(26, "Has an assertive personality", ext, dir),
	item(27, "Can be cold and aloof", agr, rev),
	item(28, "Perseveres until the task is finished", con, dir),
	item(29, "Can be moody", neu, dir),
	item(30, "Values artistic, aesthetic experiences", opn, dir),
	item(31, "Is sometimes shy, inhibited", ext, rev),
	item(32, "Is considerate and kind to almost everyone", agr, dir),
	item(33, "Does things efficiently", con, dir),
	item(34, "Remains calm in tense situations", neu, rev),
	item(35, "Prefers work that is routine", opn, rev),
	item(36, "Is outgoing, sociable", ext, dir),
	item(37, "Is sometimes rude to others", agr, rev),
	item(38, "Makes plans and follows through with them", con, dir),
	item(39, "Gets nervous easily", neu, dir),
	item(40, "Likes to reflect, play with ideas", opn, dir),
	item(41, "Has few artistic interests", opn, rev),
	item(42, "Likes to cooperate with others", agr, dir),
	item(43, "Is easily distracted", con, rev),
	item(44, "Is sophisticated in art, music, or literature", opn, dir),
}
