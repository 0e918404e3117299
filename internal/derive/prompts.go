package derive

const (
	summaryPrompt = "You are an assistant that analyses conversations. " +
		"Summarize the conversation in 3-4 sentences."

	topicsPrompt = "List exactly 5 of the most important topics discussed in the conversation as bullet points."

	clipDescriptionPrompt = "You write social media copy for short video clips. " +
		"Based on the transcript, write a catchy description of at most 300 characters, " +
		"followed by exactly 10 unique hashtags separated by spaces. Do not repeat any hashtag."

	youtubeDescriptionPrompt = "You write YouTube video descriptions. " +
		"Using the clip descriptions and key topics below, write one coherent paragraph of at most 500 characters, " +
		"followed by exactly 10 unique hashtags separated by commas. Do not repeat any hashtag."
)
